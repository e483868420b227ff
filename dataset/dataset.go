// Package dataset loads JSON Lines classification corpora and serves them
// as index-encoded batches.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jamesainslie/go-han/vocab"
)

// record is the wire form of one corpus line: sentence-segmented review
// tokens, summary tokens, and an integer class label.
type record struct {
	Review  [][]string `json:"review"`
	Summary []string   `json:"summary"`
	Label   int        `json:"label"`
}

// Dataset holds an index-encoded corpus. The three slices are co-indexed:
// Reviews[i], Summaries[i] and Labels[i] describe the same example.
type Dataset struct {
	Reviews   [][][]int
	Summaries [][]int
	Labels    []int
}

// Load reads a JSON Lines corpus and maps every token to its vocabulary
// index eagerly. The vocabularies are not retained after load.
func Load(path string, reviews, summaries *vocab.Vocab) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	ds := &Dataset{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, line, err)
		}
		if rec.Label < 0 {
			return nil, fmt.Errorf("parsing %s line %d: negative label %d", path, line, rec.Label)
		}

		review := make([][]int, len(rec.Review))
		for i, sentence := range rec.Review {
			review[i] = encode(sentence, reviews)
		}

		ds.Reviews = append(ds.Reviews, review)
		ds.Summaries = append(ds.Summaries, encode(rec.Summary, summaries))
		ds.Labels = append(ds.Labels, rec.Label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return ds, nil
}

func encode(tokens []string, v *vocab.Vocab) []int {
	indices := make([]int, len(tokens))
	for i, tok := range tokens {
		indices[i] = v.Index(tok)
	}
	return indices
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.Labels) }

// ClassCounts tallies how many examples carry each label.
func (d *Dataset) ClassCounts() map[int]int {
	counts := make(map[int]int)
	for _, label := range d.Labels {
		counts[label]++
	}
	return counts
}
