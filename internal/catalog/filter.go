package catalog

import "strings"

// Filter returns the records matching query by case-insensitive keyword
// matching over id, name, description, family, parameters, and tags. All
// query tokens must match (AND semantics). Records keep catalog order;
// limit <= 0 means no limit.
func Filter(records []Record, query string, limit int) []Record {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []Record{}
	}

	var out []Record
	for _, r := range records {
		blob := strings.ToLower(strings.Join([]string{
			r.ID, r.Name, r.Description, r.Family, r.Parameters,
			strings.Join(r.Tags, "\n"),
		}, "\n"))
		ok := true
		for _, tok := range tokens {
			if !strings.Contains(blob, tok) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, r)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func tokenize(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	parts := strings.Fields(q)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
