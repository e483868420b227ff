// Package vocab loads and stores token vocabularies with their pretrained
// embedding vectors.
package vocab

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Special tokens every vocabulary artifact carries.
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
)

// Vocab maps tokens to indices and holds one embedding row per token.
//
// Stoi is derived from Itos at load time and is never serialized; the two
// views always agree.
type Vocab struct {
	Itos    []string
	Stoi    map[string]int
	Vectors *mat.Dense
}

// artifact is the on-disk gob form. Vectors round-trips through the gob
// codec via its binary marshaling.
type artifact struct {
	Itos    []string
	Vectors *mat.Dense
}

// New builds a vocabulary from an index-to-token list and its embedding
// matrix. The matrix must have exactly one row per token.
func New(itos []string, vectors *mat.Dense) (*Vocab, error) {
	if len(itos) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	rows, _ := vectors.Dims()
	if rows != len(itos) {
		return nil, fmt.Errorf("vector rows %d do not match %d tokens", rows, len(itos))
	}

	stoi := make(map[string]int, len(itos))
	for i, tok := range itos {
		if _, ok := stoi[tok]; ok {
			return nil, fmt.Errorf("duplicate token %q at index %d", tok, i)
		}
		stoi[tok] = i
	}

	return &Vocab{Itos: itos, Stoi: stoi, Vectors: vectors}, nil
}

// Load reads a vocabulary artifact from a gob file.
func Load(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocab file: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding vocab file: %w", err)
	}
	if a.Vectors == nil {
		return nil, fmt.Errorf("vocab file %s has no vectors", path)
	}

	v, err := New(a.Itos, a.Vectors)
	if err != nil {
		return nil, fmt.Errorf("validating vocab file %s: %w", path, err)
	}
	return v, nil
}

// Save writes the vocabulary artifact. The file is written to a temporary
// name and renamed into place so readers never observe a partial artifact.
func Save(path string, v *Vocab) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp vocab file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(artifact{Itos: v.Itos, Vectors: v.Vectors}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding vocab file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp vocab file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming vocab file: %w", err)
	}
	return nil
}

// Len returns the number of tokens.
func (v *Vocab) Len() int { return len(v.Itos) }

// Dim returns the embedding dimensionality.
func (v *Vocab) Dim() int {
	_, cols := v.Vectors.Dims()
	return cols
}

// Index resolves a token to its row. Unknown tokens map to the <unk> row
// when the vocabulary has one, otherwise to row 0.
func (v *Vocab) Index(token string) int {
	if i, ok := v.Stoi[token]; ok {
		return i
	}
	if i, ok := v.Stoi[UnkToken]; ok {
		return i
	}
	return 0
}
