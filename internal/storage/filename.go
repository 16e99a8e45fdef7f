package storage

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Sanitize reduces a declared filename to a safe single-path-segment form:
// diacritics stripped, path separators and shell-hostile characters replaced
// with underscores, leading/trailing dots and underscores trimmed. An empty
// result means the name was unusable.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// Keep only the final path segment regardless of separator style.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stripped, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), name)
	if err == nil {
		name = stripped
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFilenameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

// Variants returns the ordered, de-duplicated filename spellings to try when
// locating a document: the declared name, its sanitized form, and the
// underscore/hyphen/space substitutions legacy renames introduced.
func Variants(name string) []string {
	base := strings.TrimSpace(name)
	if base == "" {
		return nil
	}
	seen := make(map[string]struct{}, 5)
	var out []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	add(base)
	add(Sanitize(base))
	add(strings.ReplaceAll(base, "_", " "))
	add(strings.ReplaceAll(base, "_", "-"))
	add(strings.ReplaceAll(base, "-", " "))
	return out
}
