package ingest

import "strings"

// delimiter candidates, checked in order so ties resolve to the earlier
// candidate.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// SniffDelimiter picks the field delimiter by counting candidate
// occurrences in the header line. Comma wins ties and is the fallback
// when no candidate appears at all.
func SniffDelimiter(headerLine string) rune {
	best := ','
	bestCount := 0
	for _, cand := range delimiterCandidates {
		if n := strings.Count(headerLine, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
