package optim

import (
	"fmt"
	"log/slog"
	"math"
)

// relThreshold is the minimum relative improvement that resets the plateau
// counter.
const relThreshold = 0.05

// Plateau reduces the optimizer's learning rate by a fixed factor when the
// tracked metric goes patience epochs without a meaningful improvement.
type Plateau struct {
	opt      Optimizer
	mode     string
	factor   float64
	patience int
	logger   *slog.Logger

	best float64
	bad  int
}

// NewPlateau constructs a plateau scheduler. mode is "min" when smaller
// metric values are better, "max" when larger ones are. A nil logger falls
// back to slog.Default.
func NewPlateau(opt Optimizer, mode string, factor float64, patience int, logger *slog.Logger) (*Plateau, error) {
	switch mode {
	case "min", "max":
	default:
		return nil, fmt.Errorf("invalid scheduler mode %q", mode)
	}
	if factor <= 0 || factor >= 1 {
		return nil, fmt.Errorf("factor must lie in (0, 1), got %v", factor)
	}
	if patience < 0 {
		return nil, fmt.Errorf("patience must be non-negative, got %d", patience)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Plateau{opt: opt, mode: mode, factor: factor, patience: patience, logger: logger}
	p.best = math.Inf(1)
	if mode == "max" {
		p.best = math.Inf(-1)
	}
	return p, nil
}

// Step feeds one epoch's metric to the tracker, reducing the learning rate
// once more than patience epochs pass without improvement.
func (p *Plateau) Step(metric float64) {
	if p.better(metric) {
		p.best = metric
		p.bad = 0
		return
	}
	p.bad++
	if p.bad > p.patience {
		old := p.opt.LearningRate()
		p.opt.SetLearningRate(old * p.factor)
		p.bad = 0
		p.logger.Info("reducing learning rate",
			"from", old, "to", p.opt.LearningRate(), "best", p.best)
	}
}

// better applies the relative-threshold comparison for the configured mode.
func (p *Plateau) better(metric float64) bool {
	if p.mode == "max" {
		return metric > p.best*(1+relThreshold)
	}
	return metric < p.best*(1-relThreshold)
}
