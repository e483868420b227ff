// Package han trains and evaluates a hierarchical attention classifier
// over review text with an optional summary channel.
//
// A run is described by one YAML config file. Training iterates epochs of
// gradient descent, validates after every epoch and checkpoints whenever
// the validation macro-F1 improves; a later run pointed at the checkpoint
// resumes exactly where it left off. Test runs restore the weights and
// write one prediction per input line.
//
// # Quick Start
//
//	cfg, err := han.LoadConfig("experiment.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exp, err := han.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := exp.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Resuming
//
// Set model.reload to a checkpoint name under save_dir. The run restores
// the weights, the optimizer state and the best score, then performs the
// configured epochs that remain. A missing checkpoint file starts fresh,
// so the first and the hundredth run of a config behave uniformly.
//
// # Determinism
//
// All randomness flows from the configured seed through a single source.
// Two runs with the same config, corpus and seed produce identical
// parameter trajectories on the same architecture.
package han
