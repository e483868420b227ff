package model

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// craftedModel builds a 2-class model with identity-style weights so the
// forward pass can be checked by hand.
func craftedModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(Params{
		EmbedSize:       2,
		HiddenSize:      2,
		NumClasses:      2,
		TrainEmbeddings: true,
		ReviewVocabSize: 3,
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = m.LoadStateDict(map[string]*mat.Dense{
		"review_lookup.weight": mat.NewDense(3, 2, []float64{
			0, 0,
			0.5, -0.5,
			1, 1,
		}),
		"attention.weight":  mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		"attention.bias":    mat.NewDense(2, 1, nil),
		"attention.context": mat.NewDense(2, 1, []float64{1, 0}),
		"output.weight":     mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		"output.bias":       mat.NewDense(2, 1, nil),
	})
	if err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}
	return m
}

func TestForward_SingleSentence(t *testing.T) {
	m := craftedModel(t)

	// One sentence, one word: the document vector is the word vector, and
	// identity head weights pass it straight through.
	act := m.Forward([][]int{{1}}, nil)

	want := []float64{0.5, -0.5}
	for i, w := range want {
		if math.Abs(act.Logits()[i]-w) > 1e-12 {
			t.Errorf("logits[%d] = %v, want %v", i, act.Logits()[i], w)
		}
	}
	if act.Predicted() != 0 {
		t.Errorf("Predicted() = %d, want 0", act.Predicted())
	}

	loss, err := m.Loss(act, 0)
	if err != nil {
		t.Fatalf("Loss failed: %v", err)
	}
	if want := math.Log(1 + math.Exp(-1)); math.Abs(loss-want) > 1e-12 {
		t.Errorf("loss = %v, want %v", loss, want)
	}
}

func TestForward_AttentionBlend(t *testing.T) {
	m := craftedModel(t)

	// Two sentences with different attention scores; worked by hand:
	// u_i = tanh(s_i), e_i = u_i[0], a = softmax(e), d = a1*s1 + a2*s2.
	act := m.Forward([][]int{{1}, {2}}, nil)

	attn := act.Attention()
	if len(attn) != 2 {
		t.Fatalf("attention over %d sentences, want 2", len(attn))
	}
	if math.Abs(attn[0]+attn[1]-1) > 1e-12 {
		t.Errorf("attention sums to %v, want 1", attn[0]+attn[1])
	}
	if attn[1] <= attn[0] {
		t.Errorf("higher-scoring sentence got attention %v <= %v", attn[1], attn[0])
	}

	want := []float64{0.787157, 0.361472}
	for i, w := range want {
		if math.Abs(act.Logits()[i]-w) > 1e-3 {
			t.Errorf("logits[%d] = %v, want %v", i, act.Logits()[i], w)
		}
	}
}

func TestForward_MeanPoolsSentence(t *testing.T) {
	m := craftedModel(t)

	// A sentence's vector is the mean of its word vectors.
	act := m.Forward([][]int{{1, 2}}, nil)

	want := []float64{0.75, 0.25}
	for i, w := range want {
		if math.Abs(act.sents[0][i]-w) > 1e-12 {
			t.Errorf("sentence vector[%d] = %v, want %v", i, act.sents[0][i], w)
		}
	}
}

func TestForward_EmptyInputs(t *testing.T) {
	m := craftedModel(t)

	tests := []struct {
		name   string
		review [][]int
	}{
		{"no sentences", [][]int{}},
		{"one empty sentence", [][]int{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := m.Forward(tt.review, nil)
			// Zero document vector through identity weights and zero bias.
			for i, logit := range act.Logits() {
				if logit != 0 {
					t.Errorf("logits[%d] = %v, want 0", i, logit)
				}
			}
			if _, err := m.Loss(act, 0); err != nil {
				t.Errorf("Loss failed on empty input: %v", err)
			}
		})
	}
}

func TestForward_SummaryPath(t *testing.T) {
	p := testParams()
	m, err := New(p, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	act := m.Forward([][]int{{1}}, []int{0, 2})
	if len(act.feat) != 2*p.EmbedSize {
		t.Fatalf("feature width %d, want %d", len(act.feat), 2*p.EmbedSize)
	}

	// The summary half of the feature is the mean of the summary rows.
	table := m.summaryLookup.Value
	for j := 0; j < p.EmbedSize; j++ {
		want := (table.At(0, j) + table.At(2, j)) / 2
		if math.Abs(act.feat[p.EmbedSize+j]-want) > 1e-12 {
			t.Errorf("summary feature[%d] = %v, want %v", j, act.feat[p.EmbedSize+j], want)
		}
	}
}

func TestForward_CombinedLookupSharesTable(t *testing.T) {
	p := testParams()
	p.CombinedLookup = true
	m, err := New(p, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	act := m.Forward([][]int{{1}}, []int{3})
	table := m.reviewLookup.Value
	for j := 0; j < p.EmbedSize; j++ {
		if act.sum[j] != table.At(3, j) {
			t.Errorf("summary pooled from a separate table at column %d", j)
		}
	}
}

func TestLoss_LabelOutOfRange(t *testing.T) {
	m := craftedModel(t)
	act := m.Forward([][]int{{1}}, nil)

	if _, err := m.Loss(act, 2); err == nil {
		t.Error("expected error for label beyond the head")
	}
	if _, err := m.Loss(act, -1); err == nil {
		t.Error("expected error for negative label")
	}
}
