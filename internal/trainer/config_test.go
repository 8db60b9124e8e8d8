package trainer

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(true)
	if cfg.EvalStrategy != StrategyEpoch {
		t.Errorf("encoder-decoder eval strategy = %q, want %q", cfg.EvalStrategy, StrategyEpoch)
	}
	if cfg.Epochs != 10 {
		t.Errorf("epochs = %d, want 10", cfg.Epochs)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("batch size = %d, want 100", cfg.BatchSize)
	}
	if cfg.LearningRate != 1e-4 {
		t.Errorf("learning rate = %v, want 1e-4", cfg.LearningRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	if got := DefaultConfig(false).EvalStrategy; got != StrategyNone {
		t.Errorf("decoder-only eval strategy = %q, want %q", got, StrategyNone)
	}
}

func TestConfigValidate(t *testing.T) {
	base := DefaultConfig(true)

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"zero logging steps", func(c *Config) { c.LoggingSteps = 0 }, "logging_steps"},
		{"bad eval strategy", func(c *Config) { c.EvalStrategy = "steps" }, "evaluation_strategy"},
		{"bad save strategy", func(c *Config) { c.SaveStrategy = "always" }, "save_strategy"},
		{"zero epochs", func(c *Config) { c.Epochs = 0 }, "num_train_epochs"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "per_device_train_batch_size"},
		{"negative warmup", func(c *Config) { c.WarmupSteps = -1 }, "warmup_steps"},
		{"negative weight decay", func(c *Config) { c.WeightDecay = -0.1 }, "weight_decay"},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }, "learning_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseConfig_Overrides(t *testing.T) {
	doc := "num_train_epochs: 3\nlearning_rate: 0.002\n"
	cfg, err := ParseConfig([]byte(doc), DefaultConfig(true))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Epochs != 3 {
		t.Errorf("epochs = %d, want 3", cfg.Epochs)
	}
	if cfg.LearningRate != 0.002 {
		t.Errorf("learning rate = %v, want 0.002", cfg.LearningRate)
	}
	// Untouched fields keep their defaults.
	if cfg.BatchSize != 100 {
		t.Errorf("batch size = %d, want 100", cfg.BatchSize)
	}
	if cfg.OutputDir != "./result" {
		t.Errorf("output dir = %q, want ./result", cfg.OutputDir)
	}
}

func TestParseConfig_RejectsUnknownKey(t *testing.T) {
	_, err := ParseConfig([]byte("gradient_accumulation_steps: 4\n"), DefaultConfig(true))
	if err == nil {
		t.Fatal("expected error for unknown hyperparameter")
	}
}

func TestParseConfig_EmptyKeepsBase(t *testing.T) {
	base := DefaultConfig(false)
	cfg, err := ParseConfig(nil, base)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg != base {
		t.Errorf("empty document changed config: %+v", cfg)
	}
}
