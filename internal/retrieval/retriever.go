// Package retrieval selects the best-matching base model for a natural
// language task description. Model descriptions are encoded once into a
// persisted vector index; each query is encoded with the same provider and
// ranked against every row by cosine similarity.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/embeddings"
	"github.com/modelsmith/tailor-cli/internal/metrics"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
)

// ErrEmptyIndex is returned by Retrieve when the description index holds
// no rows, which happens when the catalog has no models.
var ErrEmptyIndex = errors.New("description index is empty")

// Defaults applied by New when the corresponding Options field is zero.
const (
	DefaultSearchDepth   = 5
	DefaultMinSimilarity = 0.30
)

// Options configures a Retriever.
type Options struct {
	// IndexDir is the directory holding the persisted description index.
	IndexDir string
	// SearchDepth is the number of top-ranked candidates returned per
	// query. 0 means DefaultSearchDepth; values below 0 are rejected.
	SearchDepth int
	// MinSimilarity is the cosine score a best match must reach to count
	// as a match. 0 means DefaultMinSimilarity; a negative value disables
	// the floor entirely.
	MinSimilarity float64
	// Force makes the next EncodeModelDescriptions re-encode every row,
	// ignoring cached vectors.
	Force bool
}

// Candidate is one ranked model.
type Candidate struct {
	Name       string  `json:"name"`
	CatalogPos int     `json:"catalog_pos"`
	Score      float64 `json:"score"`
}

// Result is the outcome of one retrieval. Matched reports whether Best
// cleared the similarity floor; a Result with Matched == false is the
// normal "no suitable model" outcome, not an error. Best and Candidates
// are populated either way so callers can report near misses.
type Result struct {
	Matched    bool
	Best       Candidate
	Candidates []Candidate
}

// Retriever ranks catalog models against task descriptions. A Retriever
// is cheap to construct: nothing is encoded or read from disk until
// EncodeModelDescriptions or Retrieve is called.
type Retriever struct {
	names        []string
	descriptions []string
	provider     embeddings.Provider
	opts         Options
	cached       *index.Index
}

// New builds a Retriever over cat. An empty catalog is permitted here;
// Retrieve reports ErrEmptyIndex when queried against one.
func New(cat *catalog.Catalog, provider embeddings.Provider, opts Options) (*Retriever, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embeddings provider is required")
	}
	if opts.IndexDir == "" {
		return nil, fmt.Errorf("index dir is required")
	}
	if opts.SearchDepth == 0 {
		opts.SearchDepth = DefaultSearchDepth
	}
	if opts.SearchDepth < 1 {
		return nil, fmt.Errorf("search depth must be >= 1, got %d", opts.SearchDepth)
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	return &Retriever{
		names:        cat.Names(),
		descriptions: cat.Descriptions(),
		provider:     provider,
		opts:         opts,
	}, nil
}

// Retrieve encodes taskDescription and returns the top-ranked models.
// The index is loaded or computed on first use. Query-encoding failure
// propagates without touching the cached index.
func (r *Retriever) Retrieve(ctx context.Context, taskDescription string) (Result, error) {
	start := time.Now()
	res, err := r.retrieve(ctx, taskDescription)
	metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.Retrievals.WithLabelValues("error").Inc()
	case res.Matched:
		metrics.Retrievals.WithLabelValues("match").Inc()
	default:
		metrics.Retrievals.WithLabelValues("no_match").Inc()
	}
	return res, err
}

func (r *Retriever) retrieve(ctx context.Context, taskDescription string) (Result, error) {
	if strings.TrimSpace(taskDescription) == "" {
		return Result{}, fmt.Errorf("task description is empty")
	}

	qv, err := r.provider.Embed(ctx, taskDescription)
	if err != nil {
		return Result{}, fmt.Errorf("encode task description: %w", err)
	}

	idx := r.cached
	if idx == nil {
		idx, err = r.EncodeModelDescriptions(ctx)
		if err != nil {
			return Result{}, err
		}
	}
	if idx.Len() == 0 {
		return Result{}, ErrEmptyIndex
	}

	scored := make([]Candidate, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		s, err := index.Cosine(qv, idx.Row(i))
		if err != nil {
			return Result{}, fmt.Errorf("score row %d: %w", i, err)
		}
		scored[i] = Candidate{
			Name:       idx.Models[i].Name,
			CatalogPos: idx.Models[i].CatalogPos,
			Score:      s,
		}
	}
	// Rank by score descending; ties go to the lower catalog position so
	// results are deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].CatalogPos < scored[j].CatalogPos
		}
		return scored[i].Score > scored[j].Score
	})

	depth := r.opts.SearchDepth
	if depth > len(scored) {
		depth = len(scored)
	}
	res := Result{
		Best:       scored[0],
		Candidates: scored[:depth],
	}
	res.Matched = res.Best.Score >= r.opts.MinSimilarity
	return res, nil
}
