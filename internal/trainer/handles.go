// Package trainer prepares datasets and hyperparameters for text
// generation fine-tuning and hands them to an external training loop. It
// owns parameter marshalling, tokenization, label derivation, and metric
// wiring; the optimization itself always runs elsewhere.
package trainer

import "context"

// Tokenizer converts text to token ids and back. It is a narrow handle
// over an external tokenizer; nothing in this package depends on how the
// ids are produced.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
	PadID() int
	EOSID() int
}

// Model identifies a base model without exposing its internals. HasEncoder
// distinguishes encoder-decoder models (T5-style) from decoder-only ones
// (GPT-style); label derivation and evaluation support differ between the
// two.
type Model interface {
	Name() string
	HasEncoder() bool
}

// TrainSpec is everything a Loop needs to run one fine-tune: the resolved
// hyperparameters plus fully prepared batches.
type TrainSpec struct {
	BaseModel  string `json:"base_model"`
	HasEncoder bool   `json:"has_encoder"`
	Config     Config `json:"config"`
	Train      *Batch `json:"train"`
	Validation *Batch `json:"validation,omitempty"`
}

// Artifacts reports what a completed loop produced.
type Artifacts struct {
	ModelName string             `json:"model_name"`
	ModelPath string             `json:"model_path"`
	FinalLoss float64            `json:"final_loss"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Loop is the external optimization loop. Run blocks until training
// finishes or ctx is cancelled.
type Loop interface {
	Run(ctx context.Context, spec TrainSpec) (Artifacts, error)
}

type modelHandle struct {
	name       string
	hasEncoder bool
}

func (m modelHandle) Name() string     { return m.name }
func (m modelHandle) HasEncoder() bool { return m.hasEncoder }

// NewModel returns a plain model handle.
func NewModel(name string, hasEncoder bool) Model {
	return modelHandle{name: name, hasEncoder: hasEncoder}
}
