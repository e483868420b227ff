package vocab

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testVocab(t *testing.T) *Vocab {
	t.Helper()
	itos := []string{PadToken, UnkToken, "good", "bad"}
	vectors := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		0.1, 0.2, 0.3,
		1, 2, 3,
		-1, -2, -3,
	})
	v, err := New(itos, vectors)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return v
}

func TestNew(t *testing.T) {
	v := testVocab(t)

	if v.Len() != 4 {
		t.Errorf("Len() = %d, want 4", v.Len())
	}
	if v.Dim() != 3 {
		t.Errorf("Dim() = %d, want 3", v.Dim())
	}
	for i, tok := range v.Itos {
		if v.Stoi[tok] != i {
			t.Errorf("Stoi[%q] = %d, want %d", tok, v.Stoi[tok], i)
		}
	}
}

func TestNew_RowMismatch(t *testing.T) {
	_, err := New([]string{"a", "b"}, mat.NewDense(3, 2, nil))
	if err == nil {
		t.Error("expected error for row/token count mismatch")
	}
}

func TestNew_DuplicateToken(t *testing.T) {
	_, err := New([]string{"a", "b", "a"}, mat.NewDense(3, 2, nil))
	if err == nil {
		t.Error("expected error for duplicate token")
	}
}

func TestIndex(t *testing.T) {
	v := testVocab(t)

	tests := []struct {
		token string
		want  int
	}{
		{"good", 2},
		{"bad", 3},
		{UnkToken, 1},
		{"never-seen", 1}, // falls back to <unk>
	}
	for _, tt := range tests {
		if got := v.Index(tt.token); got != tt.want {
			t.Errorf("Index(%q) = %d, want %d", tt.token, got, tt.want)
		}
	}
}

func TestIndex_NoUnkRow(t *testing.T) {
	v, err := New([]string{"x", "y"}, mat.NewDense(2, 2, nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := v.Index("missing"); got != 0 {
		t.Errorf("Index on vocab without <unk> = %d, want 0", got)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	v := testVocab(t)
	path := filepath.Join(t.TempDir(), "review.vocab")

	if err := Save(path, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.Len() != v.Len() || got.Dim() != v.Dim() {
		t.Fatalf("round trip changed shape: %dx%d -> %dx%d", v.Len(), v.Dim(), got.Len(), got.Dim())
	}
	for i, tok := range v.Itos {
		if got.Itos[i] != tok {
			t.Errorf("Itos[%d] = %q, want %q", i, got.Itos[i], tok)
		}
	}
	if !mat.Equal(got.Vectors, v.Vectors) {
		t.Error("round trip changed vectors")
	}
	if got.Stoi["good"] != 2 {
		t.Errorf("Stoi not rebuilt on load: Stoi[good] = %d, want 2", got.Stoi["good"])
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.vocab"))
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}
