package types

import "fmt"

// FormatCents renders an integer minor-unit amount as a decimal string for
// display, e.g. 123456 -> "1234.56". Money values are stored exclusively as
// integer cents so no floating point is involved.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
