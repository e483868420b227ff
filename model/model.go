// Package model implements a hierarchical attention classifier over
// sentence-segmented review text with an optional summary path.
//
// Sentences are mean-pooled word embeddings; a learned attention over the
// sentence vectors produces the document vector; the summary (when enabled)
// is mean-pooled and concatenated before the linear output head. All
// parameters live in gonum dense matrices with explicit gradient buffers,
// so optimizers and checkpoints see one uniform representation.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Version tags the architecture generation carried inside checkpoints.
// Bump it when the parameter set or wiring changes shape.
const Version = "han-2"

// Params holds the architecture hyperparameters. The vocabulary sizes are
// not part of the configured params block; the builder injects them from
// the loaded vocabularies before construction.
type Params struct {
	EmbedSize       int  `yaml:"embed_size"`
	HiddenSize      int  `yaml:"hidden_size"`
	NumClasses      int  `yaml:"num_classes"`
	UseSummary      bool `yaml:"use_summary"`
	CombinedLookup  bool `yaml:"combined_lookup"`
	TrainEmbeddings bool `yaml:"train_embeddings"`

	ReviewVocabSize  int `yaml:"-"`
	SummaryVocabSize int `yaml:"-"`
}

// Param is one named tensor with its gradient buffer. Vector-shaped
// parameters are stored n×1 so every parameter shares one concrete type.
type Param struct {
	Name      string
	Value     *mat.Dense
	Grad      *mat.Dense
	Trainable bool
}

// ZeroGrad clears the gradient buffer.
func (p *Param) ZeroGrad() { p.Grad.Zero() }

// Model is the classifier. Construct with New, then inject pretrained
// vectors and place on a device before training.
type Model struct {
	params Params

	reviewLookup  *Param
	summaryLookup *Param // nil when the summary path is off or shares the review table
	attnWeight    *Param
	attnBias      *Param
	attnContext   *Param
	outWeight     *Param
	outBias       *Param

	accelerated bool
}

// New constructs a model with randomly initialized parameters.
func New(p Params, rng *rand.Rand) (*Model, error) {
	if p.EmbedSize <= 0 || p.HiddenSize <= 0 || p.NumClasses <= 0 {
		return nil, fmt.Errorf("embed_size, hidden_size and num_classes must be positive: %d, %d, %d",
			p.EmbedSize, p.HiddenSize, p.NumClasses)
	}
	if p.ReviewVocabSize <= 0 {
		return nil, fmt.Errorf("review vocabulary size must be positive, got %d", p.ReviewVocabSize)
	}
	if p.UseSummary && !p.CombinedLookup && p.SummaryVocabSize <= 0 {
		return nil, fmt.Errorf("summary vocabulary size must be positive, got %d", p.SummaryVocabSize)
	}

	m := &Model{params: p}

	m.reviewLookup = newParam("review_lookup.weight",
		uniformDense(rng, p.ReviewVocabSize, p.EmbedSize, 0.1), p.TrainEmbeddings)
	if p.UseSummary && !p.CombinedLookup {
		m.summaryLookup = newParam("summary_lookup.weight",
			uniformDense(rng, p.SummaryVocabSize, p.EmbedSize, 0.1), p.TrainEmbeddings)
	}

	m.attnWeight = newParam("attention.weight",
		uniformDense(rng, p.HiddenSize, p.EmbedSize, 1/math.Sqrt(float64(p.EmbedSize))), true)
	m.attnBias = newParam("attention.bias",
		mat.NewDense(p.HiddenSize, 1, nil), true)
	m.attnContext = newParam("attention.context",
		uniformDense(rng, p.HiddenSize, 1, 1/math.Sqrt(float64(p.HiddenSize))), true)

	m.outWeight = newParam("output.weight",
		uniformDense(rng, p.NumClasses, m.featureSize(), 1/math.Sqrt(float64(m.featureSize()))), true)
	m.outBias = newParam("output.bias",
		mat.NewDense(p.NumClasses, 1, nil), true)

	return m, nil
}

func newParam(name string, value *mat.Dense, trainable bool) *Param {
	rows, cols := value.Dims()
	return &Param{
		Name:      name,
		Value:     value,
		Grad:      mat.NewDense(rows, cols, nil),
		Trainable: trainable,
	}
}

func uniformDense(rng *rand.Rand, rows, cols int, scale float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * scale
	}
	return mat.NewDense(rows, cols, data)
}

// featureSize is the width of the output head's input: the document vector
// alone, or document plus summary when the summary path is on.
func (m *Model) featureSize() int {
	if m.params.UseSummary {
		return 2 * m.params.EmbedSize
	}
	return m.params.EmbedSize
}

// summaryTable resolves which lookup serves the summary path.
func (m *Model) summaryTable() *Param {
	if m.summaryLookup != nil {
		return m.summaryLookup
	}
	return m.reviewLookup
}

// Version returns the architecture version tag.
func (m *Model) Version() string { return Version }

// NumClasses returns the size of the output head.
func (m *Model) NumClasses() int { return m.params.NumClasses }

// UsesSummary reports whether the summary path is enabled.
func (m *Model) UsesSummary() bool { return m.params.UseSummary }

// SetReviewVectors copies pretrained vectors into the review lookup.
func (m *Model) SetReviewVectors(vectors *mat.Dense) error {
	return copyInto(m.reviewLookup, vectors)
}

// SetSummaryVectors copies pretrained vectors into the summary lookup. It
// is an error when the model has no separate summary lookup.
func (m *Model) SetSummaryVectors(vectors *mat.Dense) error {
	if m.summaryLookup == nil {
		return fmt.Errorf("model has no separate summary lookup")
	}
	return copyInto(m.summaryLookup, vectors)
}

func copyInto(p *Param, vectors *mat.Dense) error {
	rows, cols := vectors.Dims()
	pr, pc := p.Value.Dims()
	if rows != pr || cols != pc {
		return fmt.Errorf("%s: pretrained vectors are %dx%d, need %dx%d", p.Name, rows, cols, pr, pc)
	}
	p.Value.Copy(vectors)
	return nil
}

// Place records the compute placement. Call it after vector injection;
// placement never precedes injection.
func (m *Model) Place(accelerated bool) { m.accelerated = accelerated }

// Accelerated reports the recorded placement.
func (m *Model) Accelerated() bool { return m.accelerated }

// Parameters returns every parameter, frozen lookups included. Optimizers
// filter on the Trainable flag.
func (m *Model) Parameters() []*Param {
	params := []*Param{m.reviewLookup}
	if m.summaryLookup != nil {
		params = append(params, m.summaryLookup)
	}
	return append(params,
		m.attnWeight, m.attnBias, m.attnContext, m.outWeight, m.outBias)
}

// ZeroGrad clears every gradient buffer.
func (m *Model) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}

// StateDict snapshots every parameter value, frozen lookups included. The
// returned matrices are deep copies.
func (m *Model) StateDict() map[string]*mat.Dense {
	state := make(map[string]*mat.Dense)
	for _, p := range m.Parameters() {
		state[p.Name] = mat.DenseCopyOf(p.Value)
	}
	return state
}

// LoadStateDict copies a snapshot back into the live parameters. Every
// parameter must be present with its exact shape, and the snapshot may not
// carry parameters the model does not have.
func (m *Model) LoadStateDict(state map[string]*mat.Dense) error {
	params := m.Parameters()
	if len(state) != len(params) {
		return fmt.Errorf("state has %d parameters, model has %d", len(state), len(params))
	}
	for _, p := range params {
		value, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("state is missing parameter %q", p.Name)
		}
		rows, cols := value.Dims()
		pr, pc := p.Value.Dims()
		if rows != pr || cols != pc {
			return fmt.Errorf("parameter %q has shape %dx%d, need %dx%d", p.Name, rows, cols, pr, pc)
		}
		p.Value.Copy(value)
	}
	return nil
}

// Summary renders a one-line description for startup logs.
func (m *Model) Summary() string {
	var count int
	for _, p := range m.Parameters() {
		rows, cols := p.Value.Dims()
		count += rows * cols
	}
	return fmt.Sprintf("%s: embed=%d hidden=%d classes=%d summary=%t combined=%t train_embeddings=%t params=%d",
		Version, m.params.EmbedSize, m.params.HiddenSize, m.params.NumClasses,
		m.params.UseSummary, m.params.CombinedLookup, m.params.TrainEmbeddings, count)
}
