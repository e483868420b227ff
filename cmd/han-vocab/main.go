package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/vocab"
)

func main() {
	vectorsPath := flag.String("vectors", "", "Path to text embeddings, one token and its vector per line (required)")
	outPath := flag.String("out", "", "Path for the vocabulary artifact (required)")
	dim := flag.Int("dim", 0, "Expected embedding dimension, 0 to infer from the first line")
	corpusPath := flag.String("corpus", "", "Optional JSON Lines corpus; keep only tokens it contains")
	maxTokens := flag.Int("max", 0, "Keep at most this many tokens, 0 for all")
	flag.Parse()

	if *vectorsPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: han-vocab -vectors FILE -out FILE [-dim N] [-corpus FILE] [-max N]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var keep map[string]bool
	if *corpusPath != "" {
		var err error
		keep, err = corpusTokens(*corpusPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading corpus: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Corpus %s contains %d distinct tokens\n", *corpusPath, len(keep))
	}

	itos, vectors, err := readEmbeddings(*vectorsPath, *dim, *maxTokens, keep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading embeddings: %v\n", err)
		os.Exit(1)
	}

	v, err := vocab.New(itos, vectors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building vocabulary: %v\n", err)
		os.Exit(1)
	}
	if err := vocab.Save(*outPath, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving vocabulary: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d tokens (%d dims) to %s\n", v.Len(), v.Dim(), *outPath)
}

// corpusTokens collects every review and summary token of a JSON Lines
// corpus.
func corpusTokens(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tokens := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec struct {
			Review  [][]string `json:"review"`
			Summary []string   `json:"summary"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, sentence := range rec.Review {
			for _, token := range sentence {
				tokens[token] = true
			}
		}
		for _, token := range rec.Summary {
			tokens[token] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// readEmbeddings parses GloVe-style text embeddings. A leading word2vec
// count/dim header line is skipped when present. The <pad> and <unk>
// specials lead the vocabulary with zero vectors unless the file already
// carries them. A non-nil keep set drops every token outside it.
func readEmbeddings(path string, wantDim, maxTokens int, keep map[string]bool) ([]string, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var (
		tokens []string
		rows   [][]float64
		dim    = wantDim
	)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && len(fields) == 2 {
			_, err1 := strconv.Atoi(fields[0])
			_, err2 := strconv.Atoi(fields[1])
			if err1 == nil && err2 == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("line %d: token %q has no vector", line, fields[0])
		}

		token := fields[0]
		if seen[token] {
			continue
		}
		if keep != nil && !keep[token] && token != vocab.PadToken && token != vocab.UnkToken {
			continue
		}
		vec := make([]float64, len(fields)-1)
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", line, err)
			}
			vec[i] = v
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, nil, fmt.Errorf("line %d: %d dims, want %d", line, len(vec), dim)
		}

		seen[token] = true
		tokens = append(tokens, token)
		rows = append(rows, vec)
		if maxTokens > 0 && len(tokens) >= maxTokens {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(tokens) == 0 {
		return nil, nil, fmt.Errorf("no usable embeddings in %s", path)
	}

	var specials []string
	for _, s := range []string{vocab.PadToken, vocab.UnkToken} {
		if !seen[s] {
			specials = append(specials, s)
		}
	}
	itos := append(specials, tokens...)

	// Special rows stay zero.
	vectors := mat.NewDense(len(itos), dim, nil)
	for i, row := range rows {
		vectors.SetRow(len(specials)+i, row)
	}
	return itos, vectors, nil
}
