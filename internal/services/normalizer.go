package services

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxTextLength is the Max140Text limit used by Ustrd and Nm
const MaxTextLength = 140

// ParseAmount parses a bank amount that may use either "." or "," as the
// decimal separator. The sign is preserved; a leading "+" is dropped.
// When both separators occur the right-most one is the decimal separator,
// a separator repeated more than once is a thousands separator and a lone
// separator is always decimal.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f', '\'', '_':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero, false
	}

	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		sep, thousands := ".", ","
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			sep, thousands = ",", "."
		}
		if strings.Count(s, sep) > 1 {
			return decimal.Zero, false
		}
		s = strings.ReplaceAll(s, thousands, "")
		s = strings.Replace(s, sep, ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	}

	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
		default:
			return decimal.Zero, false
		}
	}
	if digits == 0 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// SanitizeText makes free text safe for XML character content: characters
// outside the XML 1.0 range and control characters are removed, line breaks
// and tabs become spaces, and the result is trimmed to MaxTextLength runes.
// SanitizeText(SanitizeText(s)) == SanitizeText(s).
func SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToValidUTF8(raw, "") {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case unicode.IsControl(r):
		case !isXMLChar(r):
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > MaxTextLength {
		out = strings.TrimSpace(string(runes[:MaxTextLength]))
	}
	return out
}

func isXMLChar(r rune) bool {
	return r == 0x9 || r == 0xA || r == 0xD ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// FormatAmount renders a magnitude with two decimals as required by the
// ActiveOrHistoricCurrencyAndAmount type
func FormatAmount(d decimal.Decimal) string {
	return d.Abs().StringFixed(2)
}
