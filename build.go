package han

import (
	"fmt"

	"github.com/jamesainslie/go-han/model"
	"github.com/jamesainslie/go-han/optim"
)

// buildModel constructs the classifier, copies the pretrained embeddings
// in and places it on the detected device. Vocabulary sizes come from the
// loaded artifacts, never from the config.
func (e *Experiment) buildModel(c *corpus) (*model.Model, error) {
	params := e.cfg.Model.Params
	params.ReviewVocabSize = c.reviewVocab.Len()
	params.SummaryVocabSize = c.summaryVocab.Len()

	mdl, err := model.New(params, e.rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelBuild, err)
	}
	e.logger.Info("model constructed", "model", mdl.Summary())

	if err := mdl.SetReviewVectors(c.reviewVocab.Vectors); err != nil {
		return nil, fmt.Errorf("%w: review embeddings: %v", ErrModelBuild, err)
	}
	if params.UseSummary && !params.CombinedLookup {
		if err := mdl.SetSummaryVectors(c.summaryVocab.Vectors); err != nil {
			return nil, fmt.Errorf("%w: summary embeddings: %v", ErrModelBuild, err)
		}
	}

	mdl.Place(e.device.Accelerated)
	return mdl, nil
}

// buildOptimizer wires the configured optimizer over the trainable
// parameters. Frozen embeddings never enter the optimizer, so their
// buffers are neither allocated nor checkpointed.
func (e *Experiment) buildOptimizer(mdl *model.Model) (optim.Optimizer, error) {
	var trainable []*model.Param
	for _, p := range mdl.Parameters() {
		if p.Trainable {
			trainable = append(trainable, p)
		}
	}

	hp := e.cfg.Optim.Params
	var (
		opt optim.Optimizer
		err error
	)
	switch e.cfg.Optim.Class {
	case "sgd":
		opt, err = optim.NewSGD(trainable, hp.LR, hp.Momentum, hp.WeightDecay)
	case "rmsprop":
		opt, err = optim.NewRMSprop(trainable, hp.LR, hp.Alpha, hp.WeightDecay)
	case "adam":
		opt, err = optim.NewAdam(trainable, hp.LR, hp.Beta1, hp.Beta2, hp.WeightDecay)
	default:
		return nil, fmt.Errorf("%w: unknown optim.class %q", ErrInvalidConfig, e.cfg.Optim.Class)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: optim.params: %v", ErrInvalidConfig, err)
	}

	e.logger.Info("optimizer ready",
		"class", e.cfg.Optim.Class,
		"lr", opt.LearningRate(),
		"parameters", len(trainable))
	return opt, nil
}

func (e *Experiment) buildScheduler(opt optim.Optimizer) (*optim.Plateau, error) {
	sc := e.cfg.Optim.Scheduler
	sched, err := optim.NewPlateau(opt, sc.Mode, sc.Factor, sc.Patience, e.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: optim.scheduler: %v", ErrInvalidConfig, err)
	}
	e.logger.Info("scheduler ready",
		"mode", sc.Mode, "patience", sc.Patience, "factor", sc.Factor)
	return sched, nil
}
