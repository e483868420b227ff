package han

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-han/checkpoint"
	"github.com/jamesainslie/go-han/dataset"
	"github.com/jamesainslie/go-han/internal/metrics"
	"github.com/jamesainslie/go-han/model"
	"github.com/jamesainslie/go-han/optim"
)

// train runs the epoch loop: restore, then for each remaining epoch one
// pass over the training corpus, one validation pass, a scheduler step
// and a checkpoint whenever the validation macro-F1 improves.
func (e *Experiment) train(ctx context.Context, mdl *model.Model, c *corpus) error {
	opt, err := e.buildOptimizer(mdl)
	if err != nil {
		return err
	}

	best, start, err := checkpoint.Restore(e.reloadPath(), mdl, opt, e.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpoint, err)
	}

	sched, err := e.buildScheduler(opt)
	if err != nil {
		return err
	}

	n := e.cfg.Training.NEpochs
	if start >= n {
		e.logger.Info("checkpoint already covers every configured epoch",
			"epoch", start, "n_epochs", n)
		return nil
	}

	e.logger.Info("begin training",
		"start_epoch", start, "n_epochs", n, "best_fscore", best)

	for epoch := start; epoch < n; epoch++ {
		loss, trainAcc, err := e.trainEpoch(ctx, mdl, opt, c.loaders["train"])
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		fscore, accuracy, err := e.evaluate(ctx, mdl, c.loaders["val"])
		if err != nil {
			return fmt.Errorf("epoch %d validation: %w", epoch, err)
		}
		sched.Step(fscore)

		e.logger.Info("epoch complete",
			"epoch", epoch,
			"train_loss", loss,
			"train_accuracy", trainAcc,
			"val_fscore", fscore,
			"val_accuracy", accuracy,
			"lr", opt.LearningRate())

		if fscore > best {
			best = fscore
			if err := e.saveCheckpoint(epoch+1, best, mdl, opt); err != nil {
				return err
			}
		}
	}

	e.logger.Info("training complete", "best_fscore", best)
	return nil
}

// trainEpoch runs one pass over the training loader and returns the mean
// per-example loss and the accuracy over the pass. Gradients are averaged
// within each batch, so the update magnitude does not depend on batch
// size.
func (e *Experiment) trainEpoch(ctx context.Context, mdl *model.Model, opt optim.Optimizer, loader *dataset.Loader) (loss, accuracy float64, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conf := metrics.NewConfusion(mdl.NumClasses())
	var total float64
	var count int

	batches, wait := loader.Batches(ctx)
	for batch := range batches {
		opt.ZeroGrad()
		scale := 1 / float64(batch.Size())
		for i, target := range batch.Targets {
			act := mdl.Forward(batch.Reviews[i], batch.Summaries[i])
			l, err := mdl.Loss(act, target)
			if err != nil {
				return 0, 0, err
			}
			if err := mdl.Backward(act, target, scale); err != nil {
				return 0, 0, err
			}
			conf.Add(target, act.Predicted())
			total += l
			count++
		}
		opt.Step()
	}
	if err := wait(); err != nil {
		return 0, 0, err
	}

	if count == 0 {
		return 0, 0, nil
	}
	return total / float64(count), conf.Accuracy(), nil
}

// evaluate scores the model over a loader and returns macro-F1 and
// accuracy. Forward passes mutate nothing, so batches fan out across the
// device's workers.
func (e *Experiment) evaluate(ctx context.Context, mdl *model.Model, loader *dataset.Loader) (fscore, accuracy float64, err error) {
	conf := metrics.NewConfusion(mdl.NumClasses())
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	batches, wait := loader.Batches(gctx)

	for w := 0; w < e.device.Workers; w++ {
		g.Go(func() error {
			for batch := range batches {
				preds := make([]int, batch.Size())
				for i, target := range batch.Targets {
					if target >= mdl.NumClasses() {
						return fmt.Errorf("label %d outside the model's %d classes", target, mdl.NumClasses())
					}
					preds[i] = mdl.Forward(batch.Reviews[i], batch.Summaries[i]).Predicted()
				}
				mu.Lock()
				for i, target := range batch.Targets {
					conf.Add(target, preds[i])
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	if err := wait(); err != nil {
		return 0, 0, err
	}
	return conf.MacroF1(), conf.Accuracy(), nil
}

func (e *Experiment) saveCheckpoint(epoch int, fscore float64, mdl *model.Model, opt optim.Optimizer) error {
	snap := &checkpoint.Snapshot{
		Epoch:        epoch,
		FScore:       fscore,
		ModelVersion: mdl.Version(),
		RunID:        e.runID,
		State:        mdl.StateDict(),
		Optimizer:    opt.StateDict(),
	}
	path := e.savePath()
	if err := checkpoint.Save(path, snap); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	e.logger.Info("checkpoint saved", "path", path, "epoch", epoch, "fscore", fscore)
	return nil
}
