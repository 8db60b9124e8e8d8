package trainer

import (
	"fmt"
	"math/rand"
)

// ignoreIndex marks label positions the loss must skip.
const ignoreIndex = -100

// Example is one training pair: the full model input and the expected
// output text.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Batch holds the tokenized tensors for one dataset. All rows are padded
// to the same length; AttentionMask is 1 for real tokens and 0 for
// padding.
type Batch struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
	Labels        [][]int `json:"labels"`
}

// Len returns the number of rows.
func (b *Batch) Len() int { return len(b.InputIDs) }

// Concat merges datasets in order.
func Concat(datasets ...[]Example) []Example {
	var out []Example
	for _, d := range datasets {
		out = append(out, d...)
	}
	return out
}

// Shuffle returns a seeded permutation of examples. The same seed always
// produces the same order.
func Shuffle(examples []Example, seed int64) []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Preprocess tokenizes examples into a Batch. Inputs and outputs are
// truncated to maxLength (0 means no limit) and padded to the longest row
// in the batch.
//
// Label derivation depends on the model kind: encoder-decoder models get
// the tokenized outputs with every padding position set to the ignore
// marker; decoder-only models predict their own input, so labels are the
// input ids unchanged.
func Preprocess(tok Tokenizer, examples []Example, hasEncoder bool, maxLength int) (*Batch, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	inputs := make([]string, len(examples))
	outputs := make([]string, len(examples))
	for i, ex := range examples {
		inputs[i] = ex.Input
		outputs[i] = ex.Output
	}

	inputIDs, inputMask := encodePad(tok, inputs, maxLength)

	var labels [][]int
	if hasEncoder {
		outputIDs, outputMask := encodePad(tok, outputs, maxLength)
		labels = make([][]int, len(outputIDs))
		for i := range outputIDs {
			row := make([]int, len(outputIDs[i]))
			for j := range row {
				if outputMask[i][j] == 1 {
					row[j] = outputIDs[i][j]
				} else {
					row[j] = ignoreIndex
				}
			}
			labels[i] = row
		}
	} else {
		labels = make([][]int, len(inputIDs))
		for i := range inputIDs {
			labels[i] = append([]int(nil), inputIDs[i]...)
		}
	}

	return &Batch{
		InputIDs:      inputIDs,
		AttentionMask: inputMask,
		Labels:        labels,
	}, nil
}

// encodePad tokenizes each text, truncates to maxLength, and pads every
// row to the batch maximum. The mask marks real tokens with 1.
func encodePad(tok Tokenizer, texts []string, maxLength int) (ids [][]int, mask [][]int) {
	ids = make([][]int, len(texts))
	longest := 0
	for i, t := range texts {
		e := tok.Encode(t)
		if maxLength > 0 && len(e) > maxLength {
			e = e[:maxLength]
		}
		ids[i] = e
		if len(e) > longest {
			longest = len(e)
		}
	}

	mask = make([][]int, len(texts))
	pad := tok.PadID()
	for i := range ids {
		row := make([]int, longest)
		m := make([]int, longest)
		for j := 0; j < longest; j++ {
			if j < len(ids[i]) {
				row[j] = ids[i][j]
				m[j] = 1
			} else {
				row[j] = pad
			}
		}
		ids[i] = row
		mask[i] = m
	}
	return ids, mask
}
