package reconcile

import (
	"strings"

	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/normalize"
)

// LookupResult is the spreadsheet-only qualification view for a vendor name,
// independent of any registered account or manual override.
type LookupResult struct {
	Code           *int
	Agent          string
	Status         model.Status
	EffectiveScore *float64
	Homologation   *float64
	SheetIQF       *float64
	Approved       string
	Observations   []string
	SampleCount    int
}

// Lookup finds the first roster row whose agent name contains the query and
// reconciles it against the quality-control rows. Returns false when no
// roster row matches.
func Lookup(name string, homRows []model.HomologationRow, qcRows []model.QualityControlRow) (*LookupResult, bool) {
	query := normalize.Display(name)
	if query == "" {
		return nil, false
	}

	var row *model.HomologationRow
	for i := range homRows {
		if strings.Contains(normalize.Display(homRows[i].Agent), query) {
			row = &homRows[i]
			break
		}
	}
	if row == nil {
		return nil, false
	}

	res := &LookupResult{
		Code:         row.Code,
		Agent:        row.Agent,
		Homologation: row.Homologation,
		SheetIQF:     row.IQF,
		Approved:     strings.ToUpper(strings.TrimSpace(row.Approved)),
	}

	qcAverage, sampleCount, observations := aggregateQC(row.Agent, name, qcRows)
	res.SampleCount = sampleCount
	res.Observations = observations

	res.EffectiveScore = firstScore(qcAverage, res.SheetIQF)
	res.Status = DetermineStatus(res.Approved, res.Homologation, res.EffectiveScore, res.SheetIQF)
	return res, true
}
