//go:build ignore

// Generate a synthetic review corpus plus matching text embeddings for
// smoke-testing the full pipeline.
// Usage: go run ./scripts/make-corpus.go -out testdata/synthetic
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var pools = [2][]string{
	{"good", "great", "tasty", "fresh", "friendly", "excellent"},
	{"bad", "awful", "bland", "cold", "rude", "terrible"},
}

var fillers = []string{"food", "service", "place", "staff", "menu", "the", "was", "very"}

type record struct {
	Review  [][]string `json:"review"`
	Summary []string   `json:"summary"`
	Label   int        `json:"label"`
}

func main() {
	outDir := flag.String("out", "testdata/synthetic", "Output directory")
	n := flag.Int("n", 500, "Training examples to generate")
	dim := flag.Int("dim", 16, "Embedding dimensions")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *outDir, err)
		os.Exit(1)
	}

	if err := writeEmbeddings(filepath.Join(*outDir, "embeddings.txt"), *dim, rng); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing embeddings: %v\n", err)
		os.Exit(1)
	}

	splits := []struct {
		name string
		n    int
	}{
		{"train.json", *n},
		{"val.json", *n / 5},
		{"test.json", *n / 5},
	}
	for _, s := range splits {
		path := filepath.Join(*outDir, s.name)
		if err := writeSplit(path, s.n, rng); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d examples to %s\n", s.n, path)
	}

	if err := writeConfigs(*outDir, *dim); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nNext: go run ./cmd/han-vocab -vectors %s -out %s\n",
		filepath.Join(*outDir, "embeddings.txt"), filepath.Join(*outDir, "vocab.gob"))
}

// writeConfigs emits a training config plus a test-mode config meant for
// the -testfile override, which blanks the directory settings. The test
// config therefore carries paths resolvable from the repo root.
func writeConfigs(outDir string, dim int) error {
	trainCfg := fmt.Sprintf(`mode: train
seed: 7
save_dir: %[1]s
data:
  dir: %[1]s
  review_vocab: vocab.gob
  summary_vocab: vocab.gob
  train:
    jsonfile: train.json
    batch_size: 16
  val:
    jsonfile: val.json
    batch_size: 32
model:
  params:
    embed_size: %[2]d
    hidden_size: 8
    num_classes: 2
    use_summary: true
    train_embeddings: true
optim:
  class: adam
  params:
    lr: 0.01
  scheduler:
    patience: 2
    factor: 0.5
training:
  n_epochs: 5
`, outDir, dim)

	testCfg := fmt.Sprintf(`mode: test
seed: 7
data:
  review_vocab: %[1]s/vocab.gob
  summary_vocab: %[1]s/vocab.gob
model:
  reload: %[1]s/checkpoint
  params:
    embed_size: %[2]d
    hidden_size: 8
    num_classes: 2
    use_summary: true
    train_embeddings: true
`, outDir, dim)

	if err := os.WriteFile(filepath.Join(outDir, "config.yaml"), []byte(trainCfg), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "config-test.yaml"), []byte(testCfg), 0o644)
}

func writeEmbeddings(path string, dim int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tokens := append(append([]string{}, pools[0]...), pools[1]...)
	tokens = append(tokens, fillers...)
	for _, token := range tokens {
		fmt.Fprint(f, token)
		for j := 0; j < dim; j++ {
			fmt.Fprintf(f, " %.5f", rng.NormFloat64()*0.1)
		}
		fmt.Fprintln(f)
	}
	return f.Close()
}

func writeSplit(path string, n int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := 0; i < n; i++ {
		if err := enc.Encode(generate(rng, i%2)); err != nil {
			return err
		}
	}
	return f.Close()
}

// generate builds one example whose words lean toward the label's pool,
// with filler mixed in so the classes overlap a little.
func generate(rng *rand.Rand, label int) record {
	pool := pools[label]

	sentences := 1 + rng.Intn(4)
	review := make([][]string, sentences)
	for s := range review {
		words := make([]string, 2+rng.Intn(5))
		for w := range words {
			if rng.Float64() < 0.6 {
				words[w] = pool[rng.Intn(len(pool))]
			} else {
				words[w] = fillers[rng.Intn(len(fillers))]
			}
		}
		review[s] = words
	}

	summary := make([]string, 1+rng.Intn(3))
	for w := range summary {
		summary[w] = pool[rng.Intn(len(pool))]
	}

	return record{Review: review, Summary: summary, Label: label}
}
