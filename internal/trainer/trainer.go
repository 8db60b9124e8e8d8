package trainer

import (
	"context"
	"fmt"
	"log"
)

// ValidationSplit is the fraction of shuffled training data held out for
// validation when an encoder-decoder model trains without explicit
// validation sets.
const ValidationSplit = 0.15

// Options configures a Trainer.
type Options struct {
	// ModelMaxLength truncates tokenized rows. 0 means no truncation.
	ModelMaxLength int
	// Seed drives shuffling and the validation split. The zero value is a
	// valid seed; equal seeds give identical batches.
	Seed int64
}

// Trainer turns raw example sets into a TrainSpec and delegates the
// optimization to a Loop.
type Trainer struct {
	model Model
	tok   Tokenizer
	loop  Loop
	opts  Options
	logf  func(format string, args ...any)
}

// New builds a Trainer for one base model.
func New(model Model, tok Tokenizer, loop Loop, opts Options) (*Trainer, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if loop == nil {
		return nil, fmt.Errorf("training loop is required")
	}
	if opts.ModelMaxLength < 0 {
		return nil, fmt.Errorf("model max length must be >= 0, got %d", opts.ModelMaxLength)
	}
	return &Trainer{
		model: model,
		tok:   tok,
		loop:  loop,
		opts:  opts,
		logf:  log.Printf,
	}, nil
}

// TrainResult bundles the trained model handle, the tokenizer that
// prepared the data, and the loop's report.
type TrainResult struct {
	Model     Model
	Tokenizer Tokenizer
	Artifacts Artifacts
}

// Train prepares the datasets per cfg and runs the loop.
//
// When the model is encoder-decoder and no validation sets are given,
// 15% of the shuffled training data is held out for validation.
// Decoder-only models cannot evaluate during training: evaluation is
// forced off and any supplied validation sets are ignored, with a logged
// warning in both cases.
func (t *Trainer) Train(ctx context.Context, cfg Config, trainingSets, validationSets [][]Example) (*TrainResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	merged := Concat(trainingSets...)
	if len(merged) == 0 {
		return nil, fmt.Errorf("no training examples")
	}

	if !t.model.HasEncoder() {
		if cfg.EvalStrategy != StrategyNone {
			t.logf("warning: decoder-only model does not support evaluation during training")
			cfg.EvalStrategy = StrategyNone
		}
		if len(validationSets) > 0 {
			t.logf("warning: decoder-only model does not support evaluation during training; validation sets ignored")
			validationSets = nil
		}
	}

	shuffled := Shuffle(merged, t.opts.Seed)

	trainExamples := shuffled
	var valExamples []Example
	if t.model.HasEncoder() {
		if len(validationSets) > 0 {
			valExamples = Concat(validationSets...)
		} else if cfg.EvalStrategy != StrategyNone {
			cut := int(float64(len(shuffled)) * ValidationSplit)
			if cut == 0 {
				t.logf("warning: too few training examples to hold out a validation split; evaluation disabled")
				cfg.EvalStrategy = StrategyNone
			} else {
				trainExamples = shuffled[:len(shuffled)-cut]
				valExamples = shuffled[len(shuffled)-cut:]
			}
		}
	}

	trainBatch, err := Preprocess(t.tok, trainExamples, t.model.HasEncoder(), t.opts.ModelMaxLength)
	if err != nil {
		return nil, fmt.Errorf("preprocess training data: %w", err)
	}
	var valBatch *Batch
	if len(valExamples) > 0 {
		valBatch, err = Preprocess(t.tok, valExamples, t.model.HasEncoder(), t.opts.ModelMaxLength)
		if err != nil {
			return nil, fmt.Errorf("preprocess validation data: %w", err)
		}
	}

	spec := TrainSpec{
		BaseModel:  t.model.Name(),
		HasEncoder: t.model.HasEncoder(),
		Config:     cfg,
		Train:      trainBatch,
		Validation: valBatch,
	}
	artifacts, err := t.loop.Run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("training loop: %w", err)
	}

	name := artifacts.ModelName
	if name == "" {
		name = t.model.Name() + "-finetuned"
	}
	return &TrainResult{
		Model:     NewModel(name, t.model.HasEncoder()),
		Tokenizer: t.tok,
		Artifacts: artifacts,
	}, nil
}
