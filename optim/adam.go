package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/model"
)

// Adam combines momentum and per-parameter adaptive learning rates with
// bias-corrected moment estimates.
type Adam struct {
	set          paramSet
	lr           float64
	beta1, beta2 float64
	weightDecay  float64
	steps        int
	expAvg       []*mat.Dense
	expAvgSq     []*mat.Dense
}

// NewAdam constructs an Adam optimizer.
func NewAdam(params []*model.Param, lr, beta1, beta2, weightDecay float64) (*Adam, error) {
	set, err := newParamSet(params)
	if err != nil {
		return nil, err
	}
	if lr < 0 {
		return nil, fmt.Errorf("invalid learning rate %v", lr)
	}
	if beta1 < 0 || beta1 >= 1 {
		return nil, fmt.Errorf("invalid beta1 %v", beta1)
	}
	if beta2 < 0 || beta2 >= 1 {
		return nil, fmt.Errorf("invalid beta2 %v", beta2)
	}
	if weightDecay < 0 {
		return nil, fmt.Errorf("invalid weight decay %v", weightDecay)
	}

	return &Adam{
		set:         set,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		weightDecay: weightDecay,
		expAvg:      set.zeroLike(),
		expAvgSq:    set.zeroLike(),
	}, nil
}

// Step applies one Adam update. The step counter drives bias correction,
// so it is part of the checkpointed state.
func (o *Adam) Step() {
	o.steps++
	bc1 := 1 - math.Pow(o.beta1, float64(o.steps))
	bc2 := 1 - math.Pow(o.beta2, float64(o.steps))

	for i, p := range o.set.params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		m := o.expAvg[i].RawMatrix().Data
		v := o.expAvgSq[i].RawMatrix().Data
		for j := range value {
			g := grad[j] + o.weightDecay*value[j]
			m[j] = o.beta1*m[j] + (1-o.beta1)*g
			v[j] = o.beta2*v[j] + (1-o.beta2)*g*g
			value[j] -= o.lr * (m[j] / bc1) / (math.Sqrt(v[j]/bc2) + epsilon)
		}
	}
}

// ZeroGrad clears the managed gradients.
func (o *Adam) ZeroGrad() { o.set.zeroGrad() }

// LearningRate returns the current learning rate.
func (o *Adam) LearningRate() float64 { return o.lr }

// SetLearningRate replaces the learning rate.
func (o *Adam) SetLearningRate(lr float64) { o.lr = lr }

// StateDict snapshots the optimizer, step counter included.
func (o *Adam) StateDict() State {
	return o.set.snapshot("adam", o.lr, o.steps, map[string][]*mat.Dense{
		"exp_avg":    o.expAvg,
		"exp_avg_sq": o.expAvgSq,
	})
}

// LoadStateDict restores a snapshot taken from another Adam instance.
func (o *Adam) LoadStateDict(state State) error {
	if state.Class != "adam" {
		return fmt.Errorf("state is for %q, not adam", state.Class)
	}
	o.lr = state.LR
	o.steps = state.Steps
	return o.set.restore(state, map[string][]*mat.Dense{
		"exp_avg":    o.expAvg,
		"exp_avg_sq": o.expAvgSq,
	})
}
