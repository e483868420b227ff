package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Backward accumulates gradients for one example into the parameter Grad
// buffers. scale weights this example's contribution; batch-mean training
// passes 1/batchSize. Gradients add across calls until ZeroGrad.
func (m *Model) Backward(act *Activations, label int, scale float64) error {
	p := m.params
	if label < 0 || label >= p.NumClasses {
		return fmt.Errorf("label %d outside [0, %d)", label, p.NumClasses)
	}

	// Cross-entropy through softmax: dlogits = probs - onehot(label).
	dlogits := make([]float64, p.NumClasses)
	copy(dlogits, act.probs)
	dlogits[label]--
	floats.Scale(scale, dlogits)

	dlogitsVec := mat.NewVecDense(p.NumClasses, dlogits)
	featVec := mat.NewVecDense(len(act.feat), act.feat)
	m.outWeight.Grad.RankOne(m.outWeight.Grad, 1, dlogitsVec, featVec)
	floats.Add(m.outBias.Grad.RawMatrix().Data, dlogits)

	dfeat := make([]float64, len(act.feat))
	dfeatVec := mat.NewVecDense(len(dfeat), dfeat)
	dfeatVec.MulVec(m.outWeight.Value.T(), dlogitsVec)

	ddoc := dfeat[:p.EmbedSize]
	if p.UseSummary {
		m.scatterMean(m.summaryTable(), act.summary, dfeat[p.EmbedSize:])
	}

	if len(act.review) == 0 {
		return nil
	}

	// Attention backward: gradient w.r.t. each attention weight first,
	// then through the softmax.
	da := make([]float64, len(act.attn))
	var wsum float64
	for i, s := range act.sents {
		da[i] = floats.Dot(ddoc, s)
		wsum += act.attn[i] * da[i]
	}

	ctx := m.attnContext.Value.RawMatrix().Data
	ctxGrad := m.attnContext.Grad.RawMatrix().Data
	biasGrad := m.attnBias.Grad.RawMatrix().Data
	for i := range act.sents {
		de := act.attn[i] * (da[i] - wsum)

		u := act.us[i]
		floats.AddScaled(ctxGrad, de, u)

		// Through tanh(W s + b).
		dpre := make([]float64, p.HiddenSize)
		for j := range dpre {
			dpre[j] = de * ctx[j] * (1 - u[j]*u[j])
		}
		dpreVec := mat.NewVecDense(p.HiddenSize, dpre)
		sVec := mat.NewVecDense(p.EmbedSize, act.sents[i])
		m.attnWeight.Grad.RankOne(m.attnWeight.Grad, 1, dpreVec, sVec)
		floats.Add(biasGrad, dpre)

		// The sentence vector feeds both the attention score and the
		// document vector.
		ds := make([]float64, p.EmbedSize)
		dsVec := mat.NewVecDense(p.EmbedSize, ds)
		dsVec.MulVec(m.attnWeight.Value.T(), dpreVec)
		floats.AddScaled(ds, act.attn[i], ddoc)

		m.scatterMean(m.reviewLookup, act.review[i], ds)
	}

	return nil
}

// scatterMean propagates a mean-pool gradient back into the lookup rows of
// the pooled words. Frozen lookups are skipped.
func (m *Model) scatterMean(table *Param, words []int, grad []float64) {
	if !table.Trainable || len(words) == 0 {
		return
	}
	coeff := 1 / float64(len(words))
	for _, w := range words {
		floats.AddScaled(table.Grad.RawRowView(w), coeff, grad)
	}
}
