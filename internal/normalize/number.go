package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Number parses a heterogeneous numeric representation into a float64.
// The source spreadsheets mix Brazilian ("1.234,56") and plain ("1234.56")
// formats, sometimes with stray currency symbols or whitespace. The rightmost
// of comma/dot is treated as the decimal separator; every other occurrence of
// either is a thousands separator and is removed. A string containing only
// dots keeps the last dot as the decimal separator.
//
// The second return is false when the value does not coerce to a finite
// number. Callers treat that as "no value", never as an error.
func Number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Keep only digits, separators and sign.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma > -1 && lastDot > -1:
		if lastComma > lastDot {
			// 1.234,56 → comma is decimal
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// 1,234.56 → comma is thousands
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma > -1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastDot > -1:
		// Multiple dots: all but the last are thousands separators.
		if strings.Count(cleaned, ".") > 1 {
			integer := cleaned[:lastDot]
			decimal := cleaned[lastDot+1:]
			cleaned = strings.ReplaceAll(integer, ".", "") + "." + decimal
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NumberOf coerces an arbitrary scalar to a finite float64. Numeric inputs
// pass through the finiteness check; strings go through Number; everything
// else (nil included) yields no value.
func NumberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return NumberOf(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case *float64:
		if x == nil {
			return 0, false
		}
		return NumberOf(*x)
	case string:
		return Number(x)
	}
	return 0, false
}
