package han

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jamesainslie/go-han/internal/device"
)

// checkpointName is the file written under save_dir whenever validation
// improves.
const checkpointName = "checkpoint"

// Experiment is one fully configured run: a training run that checkpoints
// its best model, or a test run that writes predictions. Construct with
// New and drive with Run.
type Experiment struct {
	cfg    *Config
	logger *slog.Logger
	rng    *rand.Rand
	runID  string
	device device.Device
}

// New validates the configuration and prepares a run. Validation happens
// here rather than at load time so the test-file override can be applied
// in between.
func New(cfg *Config, opts ...Option) (*Experiment, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(cfg.Seed))
	}

	runID := uuid.NewString()
	return &Experiment{
		cfg:    cfg,
		logger: s.logger.With("run_id", runID),
		rng:    s.rng,
		runID:  runID,
		device: device.Detect(cfg.UseGPU),
	}, nil
}

// RunID returns the identifier stamped into every checkpoint this run
// writes.
func (e *Experiment) RunID() string { return e.runID }

// Device returns the compute device the run was placed on.
func (e *Experiment) Device() string { return e.device.String() }

// Run executes the configured mode end to end. Training restores any
// configured checkpoint, runs the remaining epochs and checkpoints each
// validation improvement; testing restores weights and writes one
// prediction per input line.
func (e *Experiment) Run(ctx context.Context) error {
	e.logger.Info("starting run",
		"mode", e.cfg.Mode,
		"seed", e.cfg.Seed,
		"device", e.device.String())
	if e.cfg.UseGPU && !e.device.Accelerated {
		e.logger.Info("accelerated kernels unavailable, using plain cpu")
	}

	d, err := e.loadData()
	if err != nil {
		return err
	}
	mdl, err := e.buildModel(d)
	if err != nil {
		return err
	}

	if e.cfg.Mode == "test" {
		return e.test(ctx, mdl, d)
	}
	return e.train(ctx, mdl, d)
}

// reloadPath resolves the configured checkpoint to restore, empty when
// none is configured.
func (e *Experiment) reloadPath() string {
	if e.cfg.Model.Reload == "" {
		return ""
	}
	return filepath.Join(e.cfg.SaveDir, e.cfg.Model.Reload)
}

// savePath is where training writes improved checkpoints.
func (e *Experiment) savePath() string {
	return filepath.Join(e.cfg.SaveDir, checkpointName)
}
