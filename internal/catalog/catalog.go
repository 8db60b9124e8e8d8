// Package catalog loads model cards from a directory into an ordered,
// searchable catalog. Each card is a markdown file with YAML frontmatter
// describing one fine-tunable base model.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMissingDescription marks a model card with no description in its
// frontmatter and no usable body text.
var ErrMissingDescription = errors.New("model card has no description")

// Record is the searchable metadata for one model card.
type Record struct {
	ID          string   // file stem, unique within the catalog
	Path        string   // card file name within the catalog dir
	Name        string   // display name; falls back to ID
	Description string   // what the model is for
	Family      string   // model family (e.g. "t5", "llama")
	Parameters  string   // parameter count (e.g. "770M", "8B")
	Tags        []string // searchable tags
}

// Catalog is an ordered set of model records. Records are sorted by ID so
// positions are reproducible across runs; anything derived from a position
// (such as an encoded-vector row) stays valid as long as the cards do not
// change.
type Catalog struct {
	Records []Record
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.Records) }

// Names returns the record names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Name
	}
	return out
}

// Descriptions returns the record descriptions in catalog order, aligned
// with Names.
func (c *Catalog) Descriptions() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Description
	}
	return out
}

// Load scans dir for *.md model cards and returns the parsed catalog.
//
// Card format: YAML frontmatter with name, description, and optional
// family, parameters, and tags, followed by a free-text body. A card
// without a frontmatter name takes the file stem as its name; a card
// without a frontmatter description takes the first body paragraph. A card
// with no description anywhere is malformed and fails the whole load.
//
// A present-but-empty directory loads as an empty catalog.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot stat catalog directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog directory %s: %w", dir, err)
	}

	cat := &Catalog{Records: []Record{}}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}

		path := filepath.Join(dir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}

		id := strings.TrimSuffix(name, ".md")
		h, body := splitFrontmatter(string(b))

		rec := Record{
			ID:          id,
			Path:        name,
			Name:        strings.TrimSpace(h["name"]),
			Description: strings.TrimSpace(h["description"]),
			Family:      strings.TrimSpace(h["family"]),
			Parameters:  strings.TrimSpace(h["parameters"]),
			Tags:        parseTags(h["tags"]),
		}
		if rec.Name == "" {
			rec.Name = id
		}
		if rec.Description == "" {
			rec.Description = firstParagraph(body)
		}
		if rec.Description == "" {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingDescription)
		}
		cat.Records = append(cat.Records, rec)
	}

	sort.Slice(cat.Records, func(i, j int) bool {
		return cat.Records[i].ID < cat.Records[j].ID
	})
	return cat, nil
}

// firstParagraph returns the first non-heading paragraph of a card body,
// with its lines joined by single spaces.
func firstParagraph(body string) string {
	var para []string
	for _, ln := range strings.Split(body, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(ln, "#") {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, ln)
	}
	return strings.Join(para, " ")
}

func parseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
