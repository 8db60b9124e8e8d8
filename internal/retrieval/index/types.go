// Package index reads and writes the persisted model-description index:
// a manifest, one JSONL entry per model, and a flat little-endian float32
// vector file with one row per entry.
package index

// Manifest describes a description index and how to interpret it.
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	EncoderID    string `json:"encoder_id"`
	Dim          int    `json:"dim"`
	Normalize    bool   `json:"normalize"`
	VectorFile   string `json:"vector_file"`
	ModelsFile   string `json:"models_file"`
}

// ModelEntry represents one model row in models.jsonl. CatalogPos is the
// position of the model in the catalog the index was built from; row i of
// the vector file belongs to entry i.
type ModelEntry struct {
	CatalogPos  int    `json:"catalog_pos"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TextHash    string `json:"text_hash"`
	UpdatedAt   string `json:"updated_at"`
}

// Index is a loaded description index. Every index holds exactly one
// vector row per model entry; Load rejects artifacts where the two
// disagree, so the alignment can be assumed by callers.
type Index struct {
	Manifest Manifest
	Models   []ModelEntry
	Vectors  []float32
}

// Len returns the number of rows.
func (x *Index) Len() int { return len(x.Models) }

// Row returns the vector for row i. The returned slice aliases the index
// storage; callers must not modify it.
func (x *Index) Row(i int) []float32 {
	start := i * x.Manifest.Dim
	return x.Vectors[start : start+x.Manifest.Dim]
}

// LookupIndices returns the catalog position of every row, in row order.
func (x *Index) LookupIndices() []int {
	out := make([]int, len(x.Models))
	for i, m := range x.Models {
		out[i] = m.CatalogPos
	}
	return out
}
