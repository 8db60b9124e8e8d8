package trainer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelsmith/tailor-cli/internal/embeddings"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
)

// ErrLengthMismatch marks metric inputs whose prediction and reference
// counts differ.
var ErrLengthMismatch = errors.New("predictions and references differ in length")

// Metric scores a batch of predictions against references.
type Metric interface {
	Name() string
	Compute(ctx context.Context, predictions, references []string) (float64, error)
}

// Evaluate runs every metric and collects scores by name.
func Evaluate(ctx context.Context, metrics []Metric, predictions, references []string) (map[string]float64, error) {
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		score, err := m.Compute(ctx, predictions, references)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name(), err)
		}
		out[m.Name()] = score
	}
	return out, nil
}

func checkLengths(predictions, references []string) error {
	if len(predictions) != len(references) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(predictions), len(references))
	}
	if len(predictions) == 0 {
		return errors.New("no predictions to score")
	}
	return nil
}

// ExactMatch is the fraction of predictions textually equal to their
// reference, in [0, 1].
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact_match" }

func (ExactMatch) Compute(ctx context.Context, predictions, references []string) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}
	hits := 0
	for i := range predictions {
		if predictions[i] == references[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(predictions)), nil
}

// ChrF is a corpus-level character n-gram F-score in [0, 100]. It uses
// character n-grams up to order 6 and word n-grams up to order 2 (the
// chrF++ configuration), with recall weighted by beta=2.
type ChrF struct{}

func (ChrF) Name() string { return "chr_f++" }

const (
	chrfCharOrder = 6
	chrfWordOrder = 2
	chrfBeta      = 2.0
)

func (ChrF) Compute(ctx context.Context, predictions, references []string) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}

	orders := chrfCharOrder + chrfWordOrder
	matched := make([]float64, orders)
	hypTotal := make([]float64, orders)
	refTotal := make([]float64, orders)

	for i := range predictions {
		hypChars := strings.Join(strings.Fields(predictions[i]), "")
		refChars := strings.Join(strings.Fields(references[i]), "")
		for n := 1; n <= chrfCharOrder; n++ {
			h := charNgrams(hypChars, n)
			r := charNgrams(refChars, n)
			m, ht, rt := ngramOverlap(h, r)
			matched[n-1] += m
			hypTotal[n-1] += ht
			refTotal[n-1] += rt
		}
		hypWords := strings.Fields(predictions[i])
		refWords := strings.Fields(references[i])
		for n := 1; n <= chrfWordOrder; n++ {
			h := wordNgrams(hypWords, n)
			r := wordNgrams(refWords, n)
			m, ht, rt := ngramOverlap(h, r)
			matched[chrfCharOrder+n-1] += m
			hypTotal[chrfCharOrder+n-1] += ht
			refTotal[chrfCharOrder+n-1] += rt
		}
	}

	betaSq := chrfBeta * chrfBeta
	var sum float64
	for k := 0; k < orders; k++ {
		var precision, recall float64
		if hypTotal[k] > 0 {
			precision = matched[k] / hypTotal[k]
		}
		if refTotal[k] > 0 {
			recall = matched[k] / refTotal[k]
		}
		if precision+recall > 0 {
			sum += (1 + betaSq) * precision * recall / (betaSq*precision + recall)
		}
	}
	return 100 * sum / float64(orders), nil
}

func charNgrams(s string, n int) map[string]int {
	out := map[string]int{}
	runes := []rune(s)
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])]++
	}
	return out
}

func wordNgrams(words []string, n int) map[string]int {
	out := map[string]int{}
	for i := 0; i+n <= len(words); i++ {
		out[strings.Join(words[i:i+n], " ")]++
	}
	return out
}

func ngramOverlap(hyp, ref map[string]int) (matched, hypTotal, refTotal float64) {
	for _, c := range hyp {
		hypTotal += float64(c)
	}
	for _, c := range ref {
		refTotal += float64(c)
	}
	for g, hc := range hyp {
		rc := ref[g]
		if rc < hc {
			matched += float64(rc)
		} else {
			matched += float64(hc)
		}
	}
	return matched, hypTotal, refTotal
}

// EmbeddingSimilarity scores semantic closeness as the mean cosine
// similarity between each prediction/reference embedding pair.
type EmbeddingSimilarity struct {
	Provider embeddings.Provider
}

func (EmbeddingSimilarity) Name() string { return "embedding_similarity" }

func (m EmbeddingSimilarity) Compute(ctx context.Context, predictions, references []string) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}
	if m.Provider == nil {
		return 0, errors.New("embeddings provider is required")
	}
	pv, err := m.Provider.EmbedBatch(ctx, predictions)
	if err != nil {
		return 0, fmt.Errorf("embed predictions: %w", err)
	}
	rv, err := m.Provider.EmbedBatch(ctx, references)
	if err != nil {
		return 0, fmt.Errorf("embed references: %w", err)
	}
	var sum float64
	for i := range pv {
		s, err := index.Cosine(pv[i], rv[i])
		if err != nil {
			return 0, err
		}
		sum += s
	}
	return sum / float64(len(pv)), nil
}
