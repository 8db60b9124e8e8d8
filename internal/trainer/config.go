package trainer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Strategy values for evaluation and checkpoint saving.
const (
	StrategyNone  = "no"
	StrategyEpoch = "epoch"
)

// Config holds the training hyperparameters. Every field is explicit;
// there is no open-ended parameter map, so an unsupported knob fails at
// parse time instead of being silently ignored.
type Config struct {
	OutputDir    string  `yaml:"output_dir" json:"output_dir"`
	LoggingDir   string  `yaml:"logging_dir" json:"logging_dir"`
	LoggingSteps int     `yaml:"logging_steps" json:"logging_steps"`
	EvalStrategy string  `yaml:"evaluation_strategy" json:"evaluation_strategy"`
	SaveStrategy string  `yaml:"save_strategy" json:"save_strategy"`
	Epochs       int     `yaml:"num_train_epochs" json:"num_train_epochs"`
	BatchSize    int     `yaml:"per_device_train_batch_size" json:"per_device_train_batch_size"`
	WarmupSteps  int     `yaml:"warmup_steps" json:"warmup_steps"`
	WeightDecay  float64 `yaml:"weight_decay" json:"weight_decay"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
}

// DefaultConfig returns the standard hyperparameters. Encoder-decoder
// models evaluate every epoch by default; decoder-only models cannot
// evaluate during training, so their default is off.
func DefaultConfig(hasEncoder bool) Config {
	eval := StrategyNone
	if hasEncoder {
		eval = StrategyEpoch
	}
	return Config{
		OutputDir:    "./result",
		LoggingDir:   "./logs",
		LoggingSteps: 8,
		EvalStrategy: eval,
		SaveStrategy: StrategyNone,
		Epochs:       10,
		BatchSize:    100,
		WarmupSteps:  0,
		WeightDecay:  0.01,
		LearningRate: 1e-4,
	}
}

// Validate reports the first invalid field. It runs at trainer
// construction so a bad config never reaches the loop.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.LoggingSteps <= 0 {
		return fmt.Errorf("logging_steps must be > 0, got %d", c.LoggingSteps)
	}
	if c.EvalStrategy != StrategyNone && c.EvalStrategy != StrategyEpoch {
		return fmt.Errorf("evaluation_strategy must be %q or %q, got %q", StrategyNone, StrategyEpoch, c.EvalStrategy)
	}
	if c.SaveStrategy != StrategyNone && c.SaveStrategy != StrategyEpoch {
		return fmt.Errorf("save_strategy must be %q or %q, got %q", StrategyNone, StrategyEpoch, c.SaveStrategy)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("num_train_epochs must be > 0, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("per_device_train_batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.WarmupSteps < 0 {
		return fmt.Errorf("warmup_steps must be >= 0, got %d", c.WarmupSteps)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be >= 0, got %v", c.WeightDecay)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0, got %v", c.LearningRate)
	}
	return nil
}

// ParseConfig applies YAML overrides from data on top of base. Unknown
// keys are rejected, so a typo in a hyperparameter name fails loudly
// instead of training with defaults. An empty document keeps base as-is.
func ParseConfig(data []byte, base Config) (Config, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, fmt.Errorf("invalid training config: %w", err)
	}
	return cfg, nil
}
