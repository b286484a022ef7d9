package template

import "strings"

const maxTags = 20

// NormalizeTags trims and lower-cases tags, drops blanks and duplicates and keeps at
// most 20, in first-seen order.
func NormalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))

	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)

		if len(out) >= maxTags {
			break
		}
	}

	return out
}
