// Package optim provides gradient-descent optimizers over model parameters
// and a plateau-driven learning-rate scheduler.
//
// Optimizers operate on the trainable parameter set only; callers filter on
// the Trainable flag before construction. State dicts capture everything a
// resumed run needs: the class tag, the current learning rate, the step
// count and every per-parameter buffer.
package optim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/model"
)

// epsilon stabilizes the adaptive denominators.
const epsilon = 1e-8

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	// Step applies one update from the current gradients.
	Step()
	// ZeroGrad clears the gradients of every managed parameter.
	ZeroGrad()
	// LearningRate returns the current learning rate.
	LearningRate() float64
	// SetLearningRate replaces the learning rate; the scheduler uses it.
	SetLearningRate(lr float64)
	// StateDict snapshots the optimizer for checkpointing.
	StateDict() State
	// LoadStateDict restores a snapshot taken from the same class.
	LoadStateDict(State) error
}

// State is the serializable form of an optimizer. Buffers maps parameter
// name to buffer name to tensor.
type State struct {
	Class   string
	LR      float64
	Steps   int
	Buffers map[string]map[string]*mat.Dense
}

// paramSet indexes an optimizer's parameters by name and owns the lifecycle
// shared by every optimizer class.
type paramSet struct {
	params []*model.Param
	index  map[string]int
}

func newParamSet(params []*model.Param) (paramSet, error) {
	if len(params) == 0 {
		return paramSet{}, fmt.Errorf("empty parameter list")
	}
	index := make(map[string]int, len(params))
	for i, p := range params {
		if _, ok := index[p.Name]; ok {
			return paramSet{}, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		index[p.Name] = i
	}
	return paramSet{params: params, index: index}, nil
}

func (s paramSet) zeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// zeroLike allocates one zero buffer per parameter.
func (s paramSet) zeroLike() []*mat.Dense {
	buffers := make([]*mat.Dense, len(s.params))
	for i, p := range s.params {
		rows, cols := p.Value.Dims()
		buffers[i] = mat.NewDense(rows, cols, nil)
	}
	return buffers
}

// snapshot deep-copies named buffer sets into a State.
func (s paramSet) snapshot(class string, lr float64, steps int, buffers map[string][]*mat.Dense) State {
	state := State{
		Class:   class,
		LR:      lr,
		Steps:   steps,
		Buffers: make(map[string]map[string]*mat.Dense),
	}
	for i, p := range s.params {
		entry := make(map[string]*mat.Dense)
		for name, set := range buffers {
			entry[name] = mat.DenseCopyOf(set[i])
		}
		state.Buffers[p.Name] = entry
	}
	return state
}

// restore copies a snapshot's buffers back. Parameters absent from the
// snapshot keep their zero buffers; unknown parameter names and shape
// mismatches are errors.
func (s paramSet) restore(state State, buffers map[string][]*mat.Dense) error {
	for name := range state.Buffers {
		if _, ok := s.index[name]; !ok {
			return fmt.Errorf("state references unknown parameter %q", name)
		}
	}
	for name, set := range buffers {
		for i, p := range s.params {
			entry, ok := state.Buffers[p.Name]
			if !ok {
				continue
			}
			saved, ok := entry[name]
			if !ok {
				continue
			}
			rows, cols := saved.Dims()
			br, bc := set[i].Dims()
			if rows != br || cols != bc {
				return fmt.Errorf("buffer %s of %q has shape %dx%d, need %dx%d",
					name, p.Name, rows, cols, br, bc)
			}
			set[i].Copy(saved)
		}
	}
	return nil
}
