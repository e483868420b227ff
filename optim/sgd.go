package optim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/model"
)

// SGD is stochastic gradient descent with optional momentum and weight
// decay.
type SGD struct {
	set         paramSet
	lr          float64
	momentum    float64
	weightDecay float64
	velocity    []*mat.Dense // allocated only with momentum
}

// NewSGD constructs an SGD optimizer over the given parameters.
func NewSGD(params []*model.Param, lr, momentum, weightDecay float64) (*SGD, error) {
	set, err := newParamSet(params)
	if err != nil {
		return nil, err
	}
	if lr < 0 {
		return nil, fmt.Errorf("invalid learning rate %v", lr)
	}
	if momentum < 0 {
		return nil, fmt.Errorf("invalid momentum %v", momentum)
	}
	if weightDecay < 0 {
		return nil, fmt.Errorf("invalid weight decay %v", weightDecay)
	}

	o := &SGD{set: set, lr: lr, momentum: momentum, weightDecay: weightDecay}
	if momentum != 0 {
		o.velocity = set.zeroLike()
	}
	return o, nil
}

// Step applies value -= lr * (grad + weight_decay*value), routed through
// the velocity buffer when momentum is on.
func (o *SGD) Step() {
	for i, p := range o.set.params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		if o.momentum != 0 {
			buf := o.velocity[i].RawMatrix().Data
			for j := range value {
				d := grad[j] + o.weightDecay*value[j]
				buf[j] = o.momentum*buf[j] + d
				value[j] -= o.lr * buf[j]
			}
			continue
		}
		for j := range value {
			value[j] -= o.lr * (grad[j] + o.weightDecay*value[j])
		}
	}
}

// ZeroGrad clears the managed gradients.
func (o *SGD) ZeroGrad() { o.set.zeroGrad() }

// LearningRate returns the current learning rate.
func (o *SGD) LearningRate() float64 { return o.lr }

// SetLearningRate replaces the learning rate.
func (o *SGD) SetLearningRate(lr float64) { o.lr = lr }

// StateDict snapshots the optimizer.
func (o *SGD) StateDict() State {
	buffers := map[string][]*mat.Dense{}
	if o.velocity != nil {
		buffers["momentum"] = o.velocity
	}
	return o.set.snapshot("sgd", o.lr, 0, buffers)
}

// LoadStateDict restores a snapshot taken from another SGD instance.
func (o *SGD) LoadStateDict(state State) error {
	if state.Class != "sgd" {
		return fmt.Errorf("state is for %q, not sgd", state.Class)
	}
	o.lr = state.LR
	if o.velocity == nil {
		return nil
	}
	return o.set.restore(state, map[string][]*mat.Dense{"momentum": o.velocity})
}
