// Package metrics computes multi-class classification quality scores.
package metrics

// Metrics holds per-class evaluation results.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
}

// Confusion accumulates prediction counts for a fixed set of classes.
// Rows index the true class, columns the predicted class. Callers must
// pass class indices in [0, classes).
type Confusion struct {
	classes int
	counts  [][]int
	total   int
}

// NewConfusion creates an empty confusion matrix over the given class count.
func NewConfusion(classes int) *Confusion {
	if classes < 1 {
		classes = 1
	}
	counts := make([][]int, classes)
	for i := range counts {
		counts[i] = make([]int, classes)
	}
	return &Confusion{classes: classes, counts: counts}
}

// Classes returns the number of classes.
func (c *Confusion) Classes() int { return c.classes }

// Total returns the number of recorded examples.
func (c *Confusion) Total() int { return c.total }

// Add records one example with its true and predicted class.
func (c *Confusion) Add(truth, pred int) {
	c.counts[truth][pred]++
	c.total++
}

// Accuracy returns the fraction of examples predicted correctly.
func (c *Confusion) Accuracy() float64 {
	if c.total == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < c.classes; i++ {
		correct += c.counts[i][i]
	}
	return float64(correct) / float64(c.total)
}

// Class computes one-vs-rest metrics for class i.
func (c *Confusion) Class(i int) Metrics {
	tp := c.counts[i][i]
	fp := 0
	fn := 0
	for j := 0; j < c.classes; j++ {
		if j == i {
			continue
		}
		fp += c.counts[j][i]
		fn += c.counts[i][j]
	}

	m := Metrics{
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
	}

	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	return m
}

// support returns the number of examples whose true class is i.
func (c *Confusion) support(i int) int {
	n := 0
	for j := 0; j < c.classes; j++ {
		n += c.counts[i][j]
	}
	return n
}

// MacroF1 returns the mean F1 over classes with at least one true example.
// Classes absent from the recorded truth do not dilute the average.
func (c *Confusion) MacroF1() float64 {
	var sum float64
	observed := 0
	for i := 0; i < c.classes; i++ {
		if c.support(i) == 0 {
			continue
		}
		sum += c.Class(i).F1
		observed++
	}
	if observed == 0 {
		return 0
	}
	return sum / float64(observed)
}
