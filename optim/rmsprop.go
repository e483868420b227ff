package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/model"
)

// RMSprop divides each update by a running root-mean-square of the
// gradient.
type RMSprop struct {
	set         paramSet
	lr          float64
	alpha       float64
	weightDecay float64
	squareAvg   []*mat.Dense
}

// NewRMSprop constructs an RMSprop optimizer. alpha is the smoothing
// constant for the squared-gradient average.
func NewRMSprop(params []*model.Param, lr, alpha, weightDecay float64) (*RMSprop, error) {
	set, err := newParamSet(params)
	if err != nil {
		return nil, err
	}
	if lr < 0 {
		return nil, fmt.Errorf("invalid learning rate %v", lr)
	}
	if alpha < 0 || alpha >= 1 {
		return nil, fmt.Errorf("invalid alpha %v", alpha)
	}
	if weightDecay < 0 {
		return nil, fmt.Errorf("invalid weight decay %v", weightDecay)
	}

	return &RMSprop{
		set:         set,
		lr:          lr,
		alpha:       alpha,
		weightDecay: weightDecay,
		squareAvg:   set.zeroLike(),
	}, nil
}

// Step applies one RMSprop update.
func (o *RMSprop) Step() {
	for i, p := range o.set.params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		sq := o.squareAvg[i].RawMatrix().Data
		for j := range value {
			g := grad[j] + o.weightDecay*value[j]
			sq[j] = o.alpha*sq[j] + (1-o.alpha)*g*g
			value[j] -= o.lr * g / (math.Sqrt(sq[j]) + epsilon)
		}
	}
}

// ZeroGrad clears the managed gradients.
func (o *RMSprop) ZeroGrad() { o.set.zeroGrad() }

// LearningRate returns the current learning rate.
func (o *RMSprop) LearningRate() float64 { return o.lr }

// SetLearningRate replaces the learning rate.
func (o *RMSprop) SetLearningRate(lr float64) { o.lr = lr }

// StateDict snapshots the optimizer.
func (o *RMSprop) StateDict() State {
	return o.set.snapshot("rmsprop", o.lr, 0, map[string][]*mat.Dense{
		"square_avg": o.squareAvg,
	})
}

// LoadStateDict restores a snapshot taken from another RMSprop instance.
func (o *RMSprop) LoadStateDict(state State) error {
	if state.Class != "rmsprop" {
		return fmt.Errorf("state is for %q, not rmsprop", state.Class)
	}
	o.lr = state.LR
	return o.set.restore(state, map[string][]*mat.Dense{"square_avg": o.squareAvg})
}
