package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headerJunkRe       = regexp.MustCompile(`[^\w\s]`)
	headerWhitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanHeader normalizes one raw header cell into a safe column name:
// strips a UTF-8 BOM, drops characters that are not word characters or
// whitespace, trims, and collapses whitespace runs into single
// underscores. Returns "" when nothing survives.
func CleanHeader(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = headerJunkRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = headerWhitespaceRe.ReplaceAllString(s, "_")
	return s
}

// NormalizeHeaders cleans every cell and resolves duplicates
// left-to-right: the first occurrence keeps its name, later occurrences
// get _1, _2, ... suffixes. Cells that clean to "" are named by position
// (column_1, column_2, ...). The result has the same length as the input
// and every name is unique.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))

	for i, cell := range raw {
		name := CleanHeader(cell)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}

		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				candidate := fmt.Sprintf("%s_%d", base, n)
				if _, taken := seen[candidate]; !taken {
					seen[base] = n
					name = candidate
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// HeaderIsEmpty reports whether a raw header row has no usable cells.
func HeaderIsEmpty(raw []string) bool {
	for _, cell := range raw {
		if CleanHeader(cell) != "" {
			return false
		}
	}
	return true
}
