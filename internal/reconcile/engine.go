// Package reconcile computes a vendor's qualification status from three
// sources: the admin's manual override, the homologation roster spreadsheet
// and the quality-control log. The result is recomputed from the current
// snapshot on every call, never cached.
package reconcile

import (
	"strings"

	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/normalize"
)

// rejectionFloor is the score below which any source vetoes the vendor.
const rejectionFloor = 70

// DetermineStatus derives the base status from the roster approval flag and
// the three score signals. Any score below the floor rejects immediately,
// inspected in this exact order: qc average, roster iqf, homologation.
// Aggregation is safety-biased: one bad signal rejects, it is not a vote.
func DetermineStatus(approvedFlag string, homologation, qcAverage, sheetIQF *float64) model.Status {
	for _, score := range []*float64{qcAverage, sheetIQF, homologation} {
		if score != nil && *score < rejectionFloor {
			return model.StatusRejected
		}
	}
	switch strings.ToUpper(strings.TrimSpace(approvedFlag)) {
	case "N":
		return model.StatusRejected
	case "S":
		return model.StatusApproved
	}
	return model.StatusUnderReview
}

// Reconcile merges the override, the homologation roster and the
// quality-control rows into the vendor's authoritative status tuple.
//
// The homologation row is matched by normalized display name (agent or trade
// name), with a cleaned-CNPJ fallback. Quality-control rows are matched by
// normalized name equality against the roster agent name, falling back to
// substring containment of the vendor's registered name. A manual
// homologation score on the override beats the roster value; the manual
// decision, when present, replaces everything else.
func Reconcile(vendor model.Vendor, override *model.ManualOverride, homRows []model.HomologationRow, qcRows []model.QualityControlRow) model.ReconciledStatus {
	rec := model.ReconciledStatus{}

	var manualScore, manualReference *float64
	var manualDecision model.Status
	if override != nil {
		manualScore = override.Score
		manualReference = override.ReferenceScore
		if override.Decision.Valid() {
			manualDecision = override.Decision
		}
		rec.ManualNote = override.Note
		rec.ManualReference = manualReference
		rec.DecidedAt = override.DecidedAt
	}

	matchedName := vendor.Name
	if row := matchHomologation(vendor, homRows); row != nil {
		if row.Agent != "" {
			matchedName = row.Agent
		}
		rec.MatchedAgent = row.Agent
		rec.ApprovedFlag = strings.ToUpper(strings.TrimSpace(row.Approved))
		rec.HomologationScore = row.Homologation
		rec.SheetIQF = row.IQF
	}
	if manualScore != nil {
		rec.HomologationScore = manualScore
	}

	qcAverage, sampleCount, observations := aggregateQC(matchedName, vendor.Name, qcRows)
	rec.QCAverage = qcAverage
	rec.QCSampleCount = sampleCount
	rec.Observations = observations

	rec.EffectiveScore = firstScore(qcAverage, rec.SheetIQF, manualReference)

	rec.Status = DetermineStatus(rec.ApprovedFlag, rec.HomologationScore, rec.EffectiveScore, rec.SheetIQF)
	if rec.Status == model.StatusUnderReview && sampleCount == 0 &&
		rec.HomologationScore == nil && rec.SheetIQF == nil && manualReference == nil {
		rec.Status = model.StatusNotYetRegistered
	}
	if manualDecision != "" {
		rec.Status = manualDecision
		rec.DecisionOverridden = true
	}
	return rec
}

// matchHomologation finds the vendor's roster row: normalized name equality
// against the agent and trade-name columns first, cleaned CNPJ second.
func matchHomologation(vendor model.Vendor, rows []model.HomologationRow) *model.HomologationRow {
	target := normalize.Display(vendor.Name)
	if target != "" {
		for i := range rows {
			if normalize.Display(rows[i].Agent) == target ||
				(rows[i].TradeName != "" && normalize.Display(rows[i].TradeName) == target) {
				return &rows[i]
			}
		}
	}
	taxID := strings.TrimSpace(vendor.TaxID)
	if taxID != "" {
		for i := range rows {
			if rows[i].TaxID == taxID {
				return &rows[i]
			}
		}
	}
	return nil
}

// aggregateQC averages the coercible grades of the vendor's quality-control
// rows and collects their observation notes. Rows match by normalized name
// equality against the roster agent name; when nothing matches, any row
// whose name contains the vendor's registered name is taken instead.
func aggregateQC(rosterName, registeredName string, rows []model.QualityControlRow) (*float64, int, []string) {
	target := normalize.Display(rosterName)
	if target == "" {
		target = normalize.Display(registeredName)
	}
	if target == "" {
		return nil, 0, nil
	}

	var matched []model.QualityControlRow
	for _, row := range rows {
		if normalize.Display(row.AgentName) == target {
			matched = append(matched, row)
		}
	}
	if len(matched) == 0 {
		contains := normalize.Display(registeredName)
		if contains != "" {
			for _, row := range rows {
				if strings.Contains(normalize.Display(row.AgentName), contains) {
					matched = append(matched, row)
				}
			}
		}
	}
	if len(matched) == 0 {
		return nil, 0, nil
	}

	var sum float64
	var count int
	var observations []string
	for _, row := range matched {
		if row.Grade != nil {
			sum += *row.Grade
			count++
		}
		obs := strings.TrimSpace(row.Observation)
		if obs == "" || normalize.Key(obs) == "SEMCOMENTARIOS" {
			continue
		}
		observations = append(observations, obs)
	}
	if count == 0 {
		return nil, 0, observations
	}
	avg := sum / float64(count)
	return &avg, count, observations
}

// firstScore returns the first non-nil score among the candidates.
func firstScore(scores ...*float64) *float64 {
	for _, s := range scores {
		if s != nil {
			return s
		}
	}
	return nil
}
