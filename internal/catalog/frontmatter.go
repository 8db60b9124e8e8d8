package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitFrontmatter separates a card's YAML frontmatter from its body.
// Scalar values are kept as-is; list values are flattened to a
// comma-separated string so tags may be written either way. Cards without
// frontmatter, or with unparseable frontmatter, yield an empty map and the
// full content as body.
func splitFrontmatter(content string) (map[string]string, string) {
	s := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(s, "---") {
		return map[string]string{}, content
	}

	parts := strings.SplitN(s, "---", 3)
	if len(parts) < 3 {
		return map[string]string{}, content
	}

	fmText := strings.TrimSpace(parts[1])
	body := strings.TrimPrefix(parts[2], "\n")

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(fmText), &raw); err != nil {
		return map[string]string{}, content
	}

	out := make(map[string]string)
	for k, v := range raw {
		key := strings.ToLower(k)
		switch tv := v.(type) {
		case string:
			out[key] = tv
		case []any:
			items := make([]string, 0, len(tv))
			for _, it := range tv {
				items = append(items, fmt.Sprintf("%v", it))
			}
			out[key] = strings.Join(items, ", ")
		case int, int64, float64, bool:
			out[key] = fmt.Sprintf("%v", tv)
		}
	}
	return out, body
}
