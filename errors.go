package han

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrInvalidConfig indicates the configuration is missing a required
	// key or carries an unusable value.
	ErrInvalidConfig = errors.New("han: invalid configuration")

	// ErrVocabNotFound indicates a configured vocabulary file does not exist.
	ErrVocabNotFound = errors.New("han: vocabulary file not found")

	// ErrDatasetNotFound indicates a configured dataset file does not exist.
	ErrDatasetNotFound = errors.New("han: dataset file not found")

	// ErrModelBuild indicates model construction or embedding injection failed.
	ErrModelBuild = errors.New("han: model construction failed")

	// ErrCheckpoint indicates a checkpoint exists but could not be restored.
	ErrCheckpoint = errors.New("han: checkpoint restore failed")
)
