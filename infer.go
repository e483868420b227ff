package han

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jamesainslie/go-han/checkpoint"
	"github.com/jamesainslie/go-han/model"
)

// prediction is one output line of a test run.
type prediction struct {
	Index int `json:"index"`
	Label int `json:"label"`
}

// test restores the model weights and writes one prediction per input
// example, in input order. Test runs never touch the optimizer and never
// write checkpoints.
func (e *Experiment) test(ctx context.Context, mdl *model.Model, c *corpus) error {
	if _, _, err := checkpoint.Restore(e.reloadPath(), mdl, nil, e.logger); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpoint, err)
	}

	loader := c.loaders["test"]
	e.logger.Info("testing",
		"jsonfile", e.cfg.Data.Test.JSONFile,
		"examples", loader.Len(),
		"outputfile", e.cfg.OutputFile)

	out, err := os.Create(e.cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	index := 0
	batches, wait := loader.Batches(ctx)
	for batch := range batches {
		for i := range batch.Targets {
			act := mdl.Forward(batch.Reviews[i], batch.Summaries[i])
			if err := enc.Encode(prediction{Index: index, Label: act.Predicted()}); err != nil {
				return fmt.Errorf("writing prediction %d: %w", index, err)
			}
			index++
		}
	}
	if err := wait(); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing predictions: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	e.logger.Info("testing complete", "predictions", index)
	return nil
}
