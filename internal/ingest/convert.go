package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// currency symbols stripped before money parsing.
var currencyReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

// CleanValue trims a raw cell and maps the conventional empty markers to
// null. The second return is false when the cell should be stored as NULL.
func CleanValue(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "N/A") {
		return "", false
	}
	return s, true
}

// ParseMoneyCents parses a currency amount into integer cents. Accepts
// optional currency symbols, thousands separators, and accounting-style
// negatives: "$1,234.56" -> 123456, "(45.00)" -> -4500.
func ParseMoneyCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencyReplacer.Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("ingest: empty money value %q", raw)
	}

	dollars, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ingest: invalid money value %q: %w", raw, err)
	}

	cents := int64(math.Round(dollars * 100))
	if negative {
		cents = -cents
	}
	return cents, nil
}

// date layouts accepted on ingestion, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
}

// ParseDate normalizes a date cell to ISO 8601 (YYYY-MM-DD). Values that
// match no accepted layout are returned unchanged so the original text is
// preserved rather than lost.
func ParseDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// looksNumeric reports whether a cleaned cell parses as a number after
// currency/separator stripping.
func looksNumeric(s string) bool {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(s))
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// looksIntegral reports whether a cleaned cell parses as a whole number.
func looksIntegral(s string) bool {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseInt(cleaned, 10, 64)
	return err == nil
}
