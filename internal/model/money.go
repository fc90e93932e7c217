package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a money amount in integer cents. Trust balances are never
// represented as floats.
type Cents int64

// FormatCents renders cents as a dollar string, e.g. 150050 -> "$1,500.50".
// Negative amounts render with a leading minus before the dollar sign.
func FormatCents(c Cents) string {
	neg := c < 0
	if neg {
		c = -c
	}
	dollars := int64(c) / 100
	rem := int64(c) % 100

	s := strconv.FormatInt(dollars, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := fmt.Sprintf("$%s.%02d", b.String(), rem)
	if neg {
		return "-" + out
	}
	return out
}

// ParseCents parses a user-entered amount ("1,500.50", "$25", "25.5") into
// cents. At most two decimal places are accepted.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	d, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	c := Cents(d*100 + f)
	if neg {
		c = -c
	}
	return c, nil
}
