package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/modelsmith/tailor-cli/internal/embeddings"
	"github.com/modelsmith/tailor-cli/internal/metrics"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
)

// EncodeModelDescriptions encodes every catalog description into the
// persisted index and returns it. Row i of the result belongs to catalog
// position i.
//
// The build is incremental: rows from an existing index in IndexDir are
// reused when the model name and canonical-text hash still match, so
// unchanged catalogs cost no encoder calls. Options.Force disables reuse.
// The index is a derived cache; concurrent writers are last-write-wins.
//
// An empty catalog yields an empty in-memory index and persists nothing.
func (r *Retriever) EncodeModelDescriptions(ctx context.Context) (*index.Index, error) {
	if len(r.names) == 0 {
		idx := &index.Index{
			Manifest: index.Manifest{
				IndexVersion: 1,
				EncoderID:    r.provider.ModelID(),
				Normalize:    true,
			},
			Models:  []index.ModelEntry{},
			Vectors: []float32{},
		}
		r.cached = idx
		return idx, nil
	}

	// Rows reusable from a previous build, keyed by model name and
	// guarded by the canonical-text hash. A cache written by a different
	// encoder, or without normalized vectors, is ignored wholesale.
	old, _ := index.Load(r.opts.IndexDir)
	reuse := map[string]index.ModelEntry{}
	reuseVec := map[string][]float32{}
	if old != nil && !r.opts.Force &&
		old.Manifest.EncoderID == r.provider.ModelID() && old.Manifest.Normalize {
		for i, e := range old.Models {
			reuse[e.Name] = e
			v := make([]float32, old.Manifest.Dim)
			copy(v, old.Row(i))
			reuseVec[e.Name] = v
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	entries := make([]index.ModelEntry, len(r.names))
	rows := make([][]float32, len(r.names))
	var pendingTexts []string
	var pendingRows []int
	changed := false

	for i := range r.names {
		text := index.CanonicalText(r.names[i], r.descriptions[i])
		h := index.TextHash(text)
		entries[i] = index.ModelEntry{
			CatalogPos:  i,
			Name:        r.names[i],
			Description: r.descriptions[i],
			TextHash:    h,
			UpdatedAt:   now,
		}

		if prev, ok := reuse[r.names[i]]; ok && prev.TextHash == h && prev.TextHash != "" {
			entries[i].UpdatedAt = prev.UpdatedAt
			rows[i] = reuseVec[r.names[i]]
			if prev.CatalogPos != i {
				changed = true
			}
			continue
		}

		pendingTexts = append(pendingTexts, text)
		pendingRows = append(pendingRows, i)
		changed = true
	}

	if len(pendingTexts) > 0 {
		vecs, err := r.provider.EmbedBatch(ctx, pendingTexts)
		if err != nil {
			return nil, fmt.Errorf("encode model descriptions: %w", err)
		}
		metrics.DescriptionsEncoded.Add(float64(len(pendingTexts)))
		for j, row := range pendingRows {
			rows[row] = index.NormalizeL2(vecs[j])
		}
	}

	// All rows, reused or fresh, must agree on the dimension.
	dim := len(rows[0])
	vectors := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has dimension %d, want %d", embeddings.ErrShapeMismatch, i, len(row), dim)
		}
		vectors = append(vectors, row...)
	}

	manifest := index.Manifest{
		IndexVersion: 1,
		CreatedAt:    now,
		EncoderID:    r.provider.ModelID(),
		Dim:          dim,
		Normalize:    true,
		VectorFile:   "vectors.f32",
		ModelsFile:   "models.jsonl",
	}
	idx := &index.Index{Manifest: manifest, Models: entries, Vectors: vectors}

	if !changed && old != nil && old.Len() == len(entries) {
		// Nothing to re-encode and the persisted artifact already matches:
		// keep it as-is.
		idx.Manifest = old.Manifest
	} else {
		if err := index.Write(r.opts.IndexDir, manifest, entries, vectors); err != nil {
			return nil, err
		}
		metrics.IndexBuilds.Inc()
	}

	r.cached = idx
	return idx, nil
}
