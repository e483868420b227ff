package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activations holds one example's forward pass: the pooled sentence
// vectors, the attention distribution, and the head inputs Backward needs.
type Activations struct {
	review  [][]int
	summary []int

	sents  [][]float64 // mean-pooled sentence vectors
	us     [][]float64 // tanh attention projections
	attn   []float64   // attention distribution over sentences
	doc    []float64   // attention-weighted document vector
	sum    []float64   // mean-pooled summary vector, nil without the summary path
	feat   []float64   // output head input
	logits []float64
	probs  []float64
}

// Logits returns the raw class scores.
func (a *Activations) Logits() []float64 { return a.logits }

// Attention returns the attention distribution over the review's sentences.
func (a *Activations) Attention() []float64 { return a.attn }

// Predicted returns the argmax class. Ties resolve to the lowest index.
func (a *Activations) Predicted() int {
	best := 0
	for i, v := range a.logits {
		if v > a.logits[best] {
			best = i
		}
	}
	return best
}

// Forward runs one example through the network. Empty sentences, an empty
// review and an empty summary all pool to zero vectors rather than failing.
//
// Calls are safe to run concurrently as long as nothing is mutating the
// parameters; each call allocates its own activations.
func (m *Model) Forward(review [][]int, summary []int) *Activations {
	p := m.params
	act := &Activations{review: review, summary: summary}

	table := m.reviewLookup.Value
	act.sents = make([][]float64, len(review))
	act.us = make([][]float64, len(review))
	scores := make([]float64, len(review))
	for i, sentence := range review {
		s := meanRows(table, sentence, p.EmbedSize)
		u := make([]float64, p.HiddenSize)
		uVec := mat.NewVecDense(p.HiddenSize, u)
		uVec.MulVec(m.attnWeight.Value, mat.NewVecDense(p.EmbedSize, s))
		bias := m.attnBias.Value.RawMatrix().Data
		for j := range u {
			u[j] = math.Tanh(u[j] + bias[j])
		}
		act.sents[i] = s
		act.us[i] = u
		scores[i] = floats.Dot(u, m.attnContext.Value.RawMatrix().Data)
	}

	act.doc = make([]float64, p.EmbedSize)
	if len(review) > 0 {
		act.attn = softmax(scores)
		for i, s := range act.sents {
			floats.AddScaled(act.doc, act.attn[i], s)
		}
	}

	if p.UseSummary {
		act.sum = meanRows(m.summaryTable().Value, summary, p.EmbedSize)
		act.feat = append(append(make([]float64, 0, 2*p.EmbedSize), act.doc...), act.sum...)
	} else {
		act.feat = act.doc
	}

	logits := make([]float64, p.NumClasses)
	lVec := mat.NewVecDense(p.NumClasses, logits)
	lVec.MulVec(m.outWeight.Value, mat.NewVecDense(len(act.feat), act.feat))
	floats.Add(logits, m.outBias.Value.RawMatrix().Data)
	act.logits = logits
	act.probs = softmax(logits)

	return act
}

// Loss computes the softmax cross-entropy of a forward pass against the
// true label, in a log-sum-exp form that stays finite for extreme logits.
func (m *Model) Loss(act *Activations, label int) (float64, error) {
	if label < 0 || label >= m.params.NumClasses {
		return 0, fmt.Errorf("label %d outside [0, %d)", label, m.params.NumClasses)
	}
	max := floats.Max(act.logits)
	var sum float64
	for _, v := range act.logits {
		sum += math.Exp(v - max)
	}
	return math.Log(sum) - (act.logits[label] - max), nil
}

// meanRows averages the table rows selected by words. No words yields the
// zero vector.
func meanRows(table *mat.Dense, words []int, dim int) []float64 {
	s := make([]float64, dim)
	if len(words) == 0 {
		return s
	}
	for _, w := range words {
		floats.Add(s, table.RawRowView(w))
	}
	floats.Scale(1/float64(len(words)), s)
	return s
}

func softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	max := floats.Max(x)
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	floats.Scale(1/sum, out)
	return out
}
