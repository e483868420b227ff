// Package checkpoint persists and restores training state: model weights,
// optimizer state, the best tracked metric and the epoch to resume from.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-han/model"
	"github.com/jamesainslie/go-han/optim"
)

// Snapshot is one durable checkpoint. Epoch counts completed epochs, so a
// resumed run continues at exactly this epoch index.
type Snapshot struct {
	Epoch        int
	FScore       float64
	ModelVersion string
	RunID        string
	State        map[string]*mat.Dense
	Optimizer    optim.State
}

// Save writes a snapshot, replacing any previous file wholesale. The write
// goes to a temporary file first and renames into place, so a crash never
// leaves a truncated checkpoint behind.
func Save(path string, snap *Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming checkpoint: %w", err)
	}
	return nil
}

// Load reads a snapshot from disk.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return &snap, nil
}

// Restore brings a model (and optionally an optimizer) back to a saved
// state and returns the best metric seen and the epoch to resume from.
//
// An empty path or a missing file is the fresh-start case, not an error: a
// first run and a resumed run share one code path. A version tag mismatch
// is logged and tolerated; the weights still load as long as every shape
// matches. Optimizer state is restored only when opt is non-nil, so
// inference restores weights alone.
func Restore(path string, mdl *model.Model, opt optim.Optimizer, logger *slog.Logger) (best float64, start int, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		logger.Info("no checkpoint configured, starting fresh")
		return 0, 0, nil
	}

	snap, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("no checkpoint found, starting fresh", "path", path)
			return 0, 0, nil
		}
		return 0, 0, err
	}

	if snap.ModelVersion != mdl.Version() {
		logger.Warn("checkpoint was written by a different model version",
			"checkpoint", snap.ModelVersion, "model", mdl.Version())
	}
	if err := mdl.LoadStateDict(snap.State); err != nil {
		return 0, 0, fmt.Errorf("restoring model state: %w", err)
	}
	if opt != nil {
		if err := opt.LoadStateDict(snap.Optimizer); err != nil {
			return 0, 0, fmt.Errorf("restoring optimizer state: %w", err)
		}
	}

	logger.Info("restored checkpoint",
		"path", path, "epoch", snap.Epoch, "fscore", snap.FScore, "run_id", snap.RunID)
	return snap.FScore, snap.Epoch, nil
}
