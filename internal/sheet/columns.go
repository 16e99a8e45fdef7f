package sheet

import (
	"github.com/sells-group/vendor-portal/internal/normalize"
)

// ResolveColumns locates the semantic column(s) named by candidates in a
// table whose headers are not contractually stable. Resolution degrades
// through three strategies of decreasing specificity:
//
//  1. Normalized-key lookup of each candidate name, in priority order,
//     against a first-occurrence-wins map of the headers.
//  2. If nothing matched: each fallback positional index whose column holds
//     at least one non-empty cell.
//  3. If still nothing: the single column with the most non-empty cells.
//
// maxCount caps the result (0 = unlimited). An empty result is a normal
// outcome, never an error; an empty table always resolves to nil.
func ResolveColumns(t *Table, candidates []string, fallbackIndices []int, maxCount int) []int {
	if t.Empty() {
		return nil
	}

	headerByKey := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		key := normalize.Key(h)
		if key == "" {
			continue
		}
		if _, seen := headerByKey[key]; !seen {
			headerByKey[key] = i
		}
	}

	var found []int
	contains := func(col int) bool {
		for _, f := range found {
			if f == col {
				return true
			}
		}
		return false
	}

	for _, cand := range candidates {
		col, ok := headerByKey[normalize.Key(cand)]
		if !ok || contains(col) {
			continue
		}
		found = append(found, col)
		if maxCount > 0 && len(found) >= maxCount {
			return found
		}
	}

	if len(found) == 0 {
		for _, idx := range fallbackIndices {
			if idx < 0 || idx >= len(t.Headers) || contains(idx) {
				continue
			}
			if t.textualCount(idx) == 0 {
				continue
			}
			found = append(found, idx)
			if maxCount > 0 && len(found) >= maxCount {
				return found
			}
		}
	}

	if len(found) == 0 {
		best, bestCount := -1, 0
		for col := range t.Headers {
			if n := t.textualCount(col); n > bestCount {
				best, bestCount = col, n
			}
		}
		if best >= 0 {
			found = append(found, best)
		}
	}

	if maxCount > 0 && len(found) > maxCount {
		found = found[:maxCount]
	}
	return found
}
