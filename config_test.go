package han

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullConfigYAML = `mode: train
use_gpu: false
seed: 42
save_dir: /tmp/han-run
data:
  dir: /data/amazon
  review_vocab: review_vocab.gob
  summary_vocab: summary_vocab.gob
  weights: weighted
  train:
    jsonfile: train.json
    batch_size: 32
  val:
    jsonfile: val.json
    batch_size: 64
model:
  reload: checkpoint
  params:
    embed_size: 100
    hidden_size: 50
    num_classes: 2
    use_summary: true
    combined_lookup: false
    train_embeddings: true
optim:
  class: adam
  params:
    lr: 0.001
  scheduler:
    patience: 3
    factor: 0.5
training:
  n_epochs: 10
`

// writeConfig drops YAML into a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, fullConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Mode != "train" {
		t.Errorf("mode = %q, want train", cfg.Mode)
	}
	if cfg.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Seed)
	}
	if cfg.Data.Dir != "/data/amazon" {
		t.Errorf("data.dir = %q", cfg.Data.Dir)
	}
	if !cfg.Data.Weights.Auto {
		t.Error("expected weights: weighted to set Auto")
	}
	if cfg.Data.Train == nil || cfg.Data.Train.BatchSize != 32 {
		t.Errorf("data.train = %+v", cfg.Data.Train)
	}
	if cfg.Model.Params.EmbedSize != 100 || cfg.Model.Params.HiddenSize != 50 {
		t.Errorf("model params = %+v", cfg.Model.Params)
	}
	if !cfg.Model.Params.UseSummary {
		t.Error("expected use_summary true")
	}
	if cfg.Optim.Class != "adam" || cfg.Optim.Params.LR != 0.001 {
		t.Errorf("optim = %+v", cfg.Optim)
	}
	if cfg.Training.NEpochs != 10 {
		t.Errorf("n_epochs = %d", cfg.Training.NEpochs)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, fullConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Optim.Params.Alpha != 0.99 {
		t.Errorf("alpha default = %v, want 0.99", cfg.Optim.Params.Alpha)
	}
	if cfg.Optim.Params.Beta1 != 0.9 || cfg.Optim.Params.Beta2 != 0.999 {
		t.Errorf("beta defaults = %v, %v", cfg.Optim.Params.Beta1, cfg.Optim.Params.Beta2)
	}
	if cfg.Optim.Scheduler.Mode != "min" {
		t.Errorf("scheduler mode default = %q, want min", cfg.Optim.Scheduler.Mode)
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, fullConfigYAML+"batchsize: 12\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWeights_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		auto    bool
		classes []float64
		wantErr bool
	}{
		{name: "absent", yaml: "data: {}\n"},
		{name: "null", yaml: "data:\n  weights:\n"},
		{name: "weighted", yaml: "data:\n  weights: weighted\n", auto: true},
		{name: "sequence", yaml: "data:\n  weights: [1.0, 2.5]\n", classes: []float64{1.0, 2.5}},
		{name: "unknown tag", yaml: "data:\n  weights: uniform\n", wantErr: true},
		{name: "mapping", yaml: "data:\n  weights: {a: 1}\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() failed: %v", err)
			}
			w := cfg.Data.Weights
			if w.Auto != tt.auto {
				t.Errorf("Auto = %v, want %v", w.Auto, tt.auto)
			}
			if len(w.Classes) != len(tt.classes) {
				t.Fatalf("Classes = %v, want %v", w.Classes, tt.classes)
			}
			for i := range tt.classes {
				if w.Classes[i] != tt.classes[i] {
					t.Errorf("Classes[%d] = %v, want %v", i, w.Classes[i], tt.classes[i])
				}
			}
			if tt.yaml == "data: {}\n" && !w.IsZero() {
				t.Error("expected zero weights when absent")
			}
		})
	}
}

func TestApplyTestFileOverride(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, fullConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	cfg.ApplyTestFileOverride("/elsewhere/test.json", "/elsewhere/out.json")

	if cfg.Data.Test == nil {
		t.Fatal("expected override to create the test section")
	}
	if cfg.Data.Test.JSONFile != "/elsewhere/test.json" {
		t.Errorf("test.jsonfile = %q", cfg.Data.Test.JSONFile)
	}
	if cfg.Data.Test.BatchSize != 1 {
		t.Errorf("test.batch_size = %d, want 1", cfg.Data.Test.BatchSize)
	}
	if cfg.OutputFile != "/elsewhere/out.json" {
		t.Errorf("outputfile = %q", cfg.OutputFile)
	}
	if cfg.Data.Dir != "" || cfg.SaveDir != "" {
		t.Errorf("expected blank dirs, got data.dir=%q save_dir=%q", cfg.Data.Dir, cfg.SaveDir)
	}
	if cfg.Mode != "train" {
		t.Errorf("override must not change mode, got %q", cfg.Mode)
	}
}

func TestApplyTestFileOverride_KeepsExistingBatchSize(t *testing.T) {
	cfg := &Config{Data: DataConfig{Test: &PhaseConfig{JSONFile: "old.json", BatchSize: 16}}}
	cfg.ApplyTestFileOverride("new.json", "out.json")
	if cfg.Data.Test.BatchSize != 16 {
		t.Errorf("batch_size = %d, want 16", cfg.Data.Test.BatchSize)
	}
	if cfg.Data.Test.JSONFile != "new.json" {
		t.Errorf("jsonfile = %q, want new.json", cfg.Data.Test.JSONFile)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, fullConfigYAML))
		if err != nil {
			t.Fatalf("LoadConfig() failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"bad mode", func(c *Config) { c.Mode = "validate" }, "mode"},
		{"missing review vocab", func(c *Config) { c.Data.ReviewVocab = "" }, "review_vocab"},
		{"missing summary vocab", func(c *Config) { c.Data.SummaryVocab = "" }, "summary_vocab"},
		{"missing train section", func(c *Config) { c.Data.Train = nil }, "data.train"},
		{"missing val jsonfile", func(c *Config) { c.Data.Val.JSONFile = "" }, "val.jsonfile"},
		{"zero batch size", func(c *Config) { c.Data.Train.BatchSize = 0 }, "batch_size"},
		{"negative class weight", func(c *Config) { c.Data.Weights.Classes = []float64{1, -2} }, "weights"},
		{"zero embed size", func(c *Config) { c.Model.Params.EmbedSize = 0 }, "embed_size"},
		{"zero classes", func(c *Config) { c.Model.Params.NumClasses = 0 }, "num_classes"},
		{"unknown optimizer", func(c *Config) { c.Optim.Class = "adagrad" }, "optim.class"},
		{"zero lr", func(c *Config) { c.Optim.Params.LR = 0 }, "lr"},
		{"bad scheduler mode", func(c *Config) { c.Optim.Scheduler.Mode = "auto" }, "scheduler.mode"},
		{"factor of one", func(c *Config) { c.Optim.Scheduler.Factor = 1 }, "factor"},
		{"negative patience", func(c *Config) { c.Optim.Scheduler.Patience = -1 }, "patience"},
		{"zero epochs", func(c *Config) { c.Training.NEpochs = 0 }, "n_epochs"},
		{"test without outputfile", func(c *Config) {
			c.Mode = "test"
			c.Data.Test = &PhaseConfig{JSONFile: "test.json", BatchSize: 1}
			c.OutputFile = ""
		}, "outputfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			_, err := New(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q does not name %q", err, tt.wantKey)
			}
		})
	}
}

func TestConfig_Validate_TestModeSkipsOptim(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, fullConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	cfg.Mode = "test"
	cfg.Data.Test = &PhaseConfig{JSONFile: "test.json", BatchSize: 1}
	cfg.OutputFile = "out.json"
	cfg.Optim.Class = "adagrad"
	cfg.Training.NEpochs = 0

	if _, err := New(cfg); err != nil {
		t.Fatalf("test mode must not validate training keys: %v", err)
	}
}
