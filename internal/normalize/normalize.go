// Package normalize canonicalizes free-text values into comparison keys.
// Vendor names, spreadsheet headers and filenames arrive from three
// independent sources with inconsistent casing, accents and punctuation;
// every cross-source comparison in the portal goes through these functions.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// stripMarks decomposes to NFD and drops combining marks, so "São" and "Sao"
// normalize to the same bytes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Display standardizes a free-text value for display-level comparison by:
//  1. Stripping diacritics (NFD decompose + drop combining marks)
//  2. Collapsing internal whitespace runs into single spaces
//  3. Trimming and converting to uppercase
//
// Empty input maps to the empty string. Idempotent.
func Display(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// Key reduces a value to its alphanumeric core: Display followed by removal
// of everything that is not a letter or digit. Two fields from different
// sources refer to the same logical entity iff their keys are equal.
func Key(s string) string {
	display := Display(s)
	if display == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(display))
	for _, r := range display {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Header canonicalizes a spreadsheet column header the way the import
// boundary expects them: trimmed, lowercased, spaces replaced by underscores.
func Header(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, " ", "_")
}
