package sheet

import (
	"sort"
	"strings"

	"github.com/sells-group/vendor-portal/internal/normalize"
)

// ignoredRosterLabels are header-ish labels that appear inside the CLAF
// roster body and must never surface as a category or a required document.
var ignoredRosterLabels = map[string]struct{}{
	"MATERIAL / SERVICO":                    {},
	"MATERIAL/SERVICO":                      {},
	"MATERIAIS":                             {},
	"CATEGORIA":                             {},
	"GRUPO":                                 {},
	"FAMILIA":                               {},
	"REQUISITOS LEGAIS":                     {},
	"REQUISITOS ESTABELECIDOS PELA ENGEMAN": {},
	"CRITERIOS DE QUALIFICACAO":             {},
	"GRAUS DE RISCO COMPLIANCE":             {},
}

// categoryCandidates and requirementCandidates drive column resolution for
// the CLAF roster, whose headers drift between exports.
var (
	categoryCandidates = []string{
		"material", "materiais", "material/servico", "categoria", "grupo", "familia",
	}
	requirementCandidates = []string{
		"requisitos legais",
		"requisitos_estabelecidos_pela_engeman",
		"requisitos estabelecidos pela engeman",
		"criterios de qualificacao",
	}
)

// Roster is the imported CLAF requirement roster: which document types each
// material/service category must present.
type Roster struct {
	table       *Table
	categoryCol int
	docCols     []int
}

// LoadRoster imports the CLAF roster workbook.
func LoadRoster(path string) (*Roster, error) {
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	r := &Roster{table: t, categoryCol: -1}
	if cols := ResolveColumns(t, categoryCandidates, []int{0}, 1); len(cols) > 0 {
		r.categoryCol = cols[0]
	}
	r.docCols = ResolveColumns(t, requirementCandidates, []int{1, 2}, 0)
	return r, nil
}

// HasCategories reports whether a category column could be resolved.
func (r *Roster) HasCategories() bool { return r.categoryCol >= 0 }

// HasRequirements reports whether requirement columns could be resolved.
func (r *Roster) HasRequirements() bool { return len(r.docCols) > 0 }

// Categories returns the distinct category names, ignored labels filtered,
// deduplicated by normalized display form, sorted for stable presentation.
func (r *Roster) Categories() []string {
	if !r.HasCategories() {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i := range r.table.Rows {
		name := strings.TrimSpace(r.table.Cell(i, r.categoryCol))
		if name == "" {
			continue
		}
		display := normalize.Display(name)
		if display == "" {
			continue
		}
		if _, skip := ignoredRosterLabels[display]; skip {
			continue
		}
		if _, dup := seen[display]; dup {
			continue
		}
		seen[display] = struct{}{}
		out = append(out, name)
	}
	sort.Slice(out, func(a, b int) bool {
		return normalize.Display(out[a]) < normalize.Display(out[b])
	})
	return out
}

// RequiredDocuments returns the document requirements for a category.
// Matching is containment in either direction on normalized display forms,
// so "MATERIAL ELETRICO" finds rows labeled "Material Elétrico Industrial"
// and vice versa. Results are deduplicated by display form, original
// ordering preserved.
func (r *Roster) RequiredDocuments(category string) []string {
	if !r.HasCategories() || !r.HasRequirements() {
		return nil
	}
	target := normalize.Display(category)
	if target == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var docs []string
	for i := range r.table.Rows {
		rowCategory := normalize.Display(r.table.Cell(i, r.categoryCol))
		if rowCategory == "" {
			continue
		}
		if !strings.Contains(rowCategory, target) && !strings.Contains(target, rowCategory) {
			continue
		}
		for _, col := range r.docCols {
			value := strings.TrimSpace(r.table.Cell(i, col))
			if value == "" {
				continue
			}
			display := normalize.Display(value)
			if display == "" {
				continue
			}
			if _, skip := ignoredRosterLabels[display]; skip {
				continue
			}
			if _, dup := seen[display]; dup {
				continue
			}
			seen[display] = struct{}{}
			docs = append(docs, value)
		}
	}
	return docs
}
