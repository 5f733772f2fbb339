package ingest

import "testing"

func TestSniffDelimiter(t *testing.T) {
	cases := []struct {
		header string
		want   rune
	}{
		{"a,b,c", ','},
		{"a\tb\tc", '\t'},
		{"a;b;c", ';'},
		{"a|b|c", '|'},
		{"no_delimiter_here", ','},
		{"", ','},
		// a single stray semicolon loses to two commas
		{"a,b;x,c", ','},
		// ties resolve to the earlier candidate (comma first)
		{"a,b;c", ','},
	}
	for _, tc := range cases {
		if got := SniffDelimiter(tc.header); got != tc.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
