package services

import "strings"

// NormalizeTags trims whitespace, drops empty values, and removes duplicates
// while keeping the first occurrence's position. Tag values keep their case;
// they are display strings, not slugs.
func NormalizeTags(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		normalized = append(normalized, v)
	}
	return normalized
}
