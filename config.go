package han

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/go-han/model"
)

// Config is the experiment description. Every run is fully determined by
// one config file plus the optional test-file override.
type Config struct {
	Mode       string         `yaml:"mode"`
	UseGPU     bool           `yaml:"use_gpu"`
	Seed       int64          `yaml:"seed"`
	SaveDir    string         `yaml:"save_dir"`
	OutputFile string         `yaml:"outputfile"`
	Data       DataConfig     `yaml:"data"`
	Model      ModelConfig    `yaml:"model"`
	Optim      OptimConfig    `yaml:"optim"`
	Training   TrainingConfig `yaml:"training"`
}

// DataConfig names the vocabulary and dataset artifacts. Paths are
// resolved relative to Dir, which the test-file override blanks so an
// absolute path can be passed straight through.
type DataConfig struct {
	Dir          string       `yaml:"dir"`
	ReviewVocab  string       `yaml:"review_vocab"`
	SummaryVocab string       `yaml:"summary_vocab"`
	Weights      Weights      `yaml:"weights"`
	Train        *PhaseConfig `yaml:"train"`
	Val          *PhaseConfig `yaml:"val"`
	Test         *PhaseConfig `yaml:"test"`
}

// PhaseConfig describes one phase's corpus.
type PhaseConfig struct {
	JSONFile  string `yaml:"jsonfile"`
	BatchSize int    `yaml:"batch_size"`
}

// ModelConfig carries the architecture params and the optional checkpoint
// to reload, named relative to save_dir.
type ModelConfig struct {
	Reload string       `yaml:"reload"`
	Params model.Params `yaml:"params"`
}

// OptimConfig selects and parameterizes the optimizer and scheduler.
type OptimConfig struct {
	Class     string          `yaml:"class"`
	Params    OptimParams     `yaml:"params"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// OptimParams are the optimizer hyperparameters. Unset smoothing constants
// take the usual defaults (alpha 0.99, betas 0.9/0.999); the learning rate
// is always explicit.
type OptimParams struct {
	LR          float64 `yaml:"lr"`
	Momentum    float64 `yaml:"momentum"`
	WeightDecay float64 `yaml:"weight_decay"`
	Alpha       float64 `yaml:"alpha"`
	Beta1       float64 `yaml:"beta1"`
	Beta2       float64 `yaml:"beta2"`
}

// SchedulerConfig parameterizes plateau-based learning-rate reduction.
// Mode defaults to "min".
type SchedulerConfig struct {
	Mode     string  `yaml:"mode"`
	Patience int     `yaml:"patience"`
	Factor   float64 `yaml:"factor"`
}

// TrainingConfig bounds the epoch loop. n_epochs counts total epochs from
// zero, so a run resumed at epoch k performs n_epochs-k more.
type TrainingConfig struct {
	NEpochs int `yaml:"n_epochs"`
}

// Weights selects the training sampling strategy: absent for a uniform
// shuffle, the string "weighted" for automatic inverse-class-frequency
// weighting, or an explicit sequence of per-class weights.
type Weights struct {
	Auto    bool
	Classes []float64
}

// IsZero reports whether no weighting was configured.
func (w Weights) IsZero() bool { return !w.Auto && len(w.Classes) == 0 }

// UnmarshalYAML accepts the three configured shapes and rejects the rest.
func (w *Weights) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return nil
		}
		var s string
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
		if s == "weighted" {
			w.Auto = true
			return nil
		}
		return fmt.Errorf("weights: unknown tag %q (want \"weighted\" or a sequence)", s)
	case yaml.SequenceNode:
		if err := value.Decode(&w.Classes); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("weights: unsupported YAML shape")
	}
}

// LoadConfig reads a config file and applies defaults. Unknown keys are
// rejected so typos fail loudly instead of silently disabling features.
// Validation happens at Experiment construction, after any test-file
// override has been applied.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyTestFileOverride points the test phase at a direct file path,
// bypassing the configured data directory and save directory entirely. It
// runs before Experiment construction; the config is not mutated after.
func (c *Config) ApplyTestFileOverride(testfile, outputfile string) {
	if c.Data.Test == nil {
		c.Data.Test = &PhaseConfig{BatchSize: 1}
	}
	c.Data.Test.JSONFile = testfile
	c.OutputFile = outputfile
	c.Data.Dir = ""
	c.SaveDir = ""
}

func (c *Config) applyDefaults() {
	if c.Optim.Params.Alpha == 0 {
		c.Optim.Params.Alpha = 0.99
	}
	if c.Optim.Params.Beta1 == 0 {
		c.Optim.Params.Beta1 = 0.9
	}
	if c.Optim.Params.Beta2 == 0 {
		c.Optim.Params.Beta2 = 0.999
	}
	if c.Optim.Scheduler.Mode == "" {
		c.Optim.Scheduler.Mode = "min"
	}
}

// phases returns the dataset phases the configured mode touches.
func (c *Config) phases() []string {
	if c.Mode == "test" {
		return []string{"test"}
	}
	return []string{"train", "val"}
}

func (c *Config) phase(name string) *PhaseConfig {
	switch name {
	case "train":
		return c.Data.Train
	case "val":
		return c.Data.Val
	case "test":
		return c.Data.Test
	default:
		return nil
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case "train", "test":
	default:
		return fmt.Errorf("%w: mode must be \"train\" or \"test\", got %q", ErrInvalidConfig, c.Mode)
	}

	if c.Data.ReviewVocab == "" {
		return fmt.Errorf("%w: missing data.review_vocab", ErrInvalidConfig)
	}
	if c.Data.SummaryVocab == "" {
		return fmt.Errorf("%w: missing data.summary_vocab", ErrInvalidConfig)
	}
	for _, name := range c.phases() {
		p := c.phase(name)
		if p == nil {
			return fmt.Errorf("%w: missing data.%s section", ErrInvalidConfig, name)
		}
		if p.JSONFile == "" {
			return fmt.Errorf("%w: missing data.%s.jsonfile", ErrInvalidConfig, name)
		}
		if p.BatchSize <= 0 {
			return fmt.Errorf("%w: data.%s.batch_size must be positive", ErrInvalidConfig, name)
		}
	}
	for i, w := range c.Data.Weights.Classes {
		if w <= 0 {
			return fmt.Errorf("%w: data.weights[%d] must be positive, got %v", ErrInvalidConfig, i, w)
		}
	}

	mp := c.Model.Params
	if mp.EmbedSize <= 0 {
		return fmt.Errorf("%w: model.params.embed_size must be positive", ErrInvalidConfig)
	}
	if mp.HiddenSize <= 0 {
		return fmt.Errorf("%w: model.params.hidden_size must be positive", ErrInvalidConfig)
	}
	if mp.NumClasses <= 0 {
		return fmt.Errorf("%w: model.params.num_classes must be positive", ErrInvalidConfig)
	}

	if c.Mode == "test" {
		if c.OutputFile == "" {
			return fmt.Errorf("%w: missing outputfile", ErrInvalidConfig)
		}
		return nil
	}

	switch c.Optim.Class {
	case "sgd", "rmsprop", "adam":
	default:
		return fmt.Errorf("%w: unknown optim.class %q", ErrInvalidConfig, c.Optim.Class)
	}
	if c.Optim.Params.LR <= 0 {
		return fmt.Errorf("%w: optim.params.lr must be positive", ErrInvalidConfig)
	}
	switch c.Optim.Scheduler.Mode {
	case "min", "max":
	default:
		return fmt.Errorf("%w: optim.scheduler.mode must be \"min\" or \"max\", got %q",
			ErrInvalidConfig, c.Optim.Scheduler.Mode)
	}
	if f := c.Optim.Scheduler.Factor; f <= 0 || f >= 1 {
		return fmt.Errorf("%w: optim.scheduler.factor must lie in (0, 1), got %v", ErrInvalidConfig, f)
	}
	if c.Optim.Scheduler.Patience < 0 {
		return fmt.Errorf("%w: optim.scheduler.patience must be non-negative", ErrInvalidConfig)
	}
	if c.Training.NEpochs <= 0 {
		return fmt.Errorf("%w: training.n_epochs must be positive", ErrInvalidConfig)
	}
	return nil
}
