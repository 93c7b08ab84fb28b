package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// cleanNumber strips thousands separators and whitespace from a numeric cell.
// Accounting negatives written as "(1,234)" become "-1234".
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return ""
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case ',', ' ', '\u00a0', '_':
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	if neg && out != "" {
		out = "-" + out
	}
	return out
}

// ParseAmount converts a cell to a decimal. Blank and non-numeric cells are zero.
func ParseAmount(s string) decimal.Decimal {
	c := cleanNumber(s)
	if c == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(c)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// cellValue is the stored form of a balance-sheet cell: the cleaned number in
// canonical decimal form, the cleaned text when it is not numeric, or "" when blank.
func cellValue(s string) string {
	c := cleanNumber(s)
	if c == "" {
		return ""
	}
	if d, err := decimal.NewFromString(c); err == nil {
		return d.String()
	}
	return c
}
