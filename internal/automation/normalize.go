package automation

import (
	"slices"
	"strings"
)

// NormalizeList lowercases and trims every entry, dropping empty and repeated
// ones. Order of first occurrence is kept and the result is never nil.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = NormalizeText(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return NormalizeText(*s)
}
