package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/vendor-portal/internal/model"
)

// reevaluationInterval is how long a qualification stays current before the
// portal projects the next review date.
const reevaluationInterval = 365 * 24 * time.Hour

const pendingFeedback = "Aguardando analise dos documentos enviados."

// AdminRecord projects a vendor, its reconciled status and its document list
// into the full-fidelity admin view. Documents are sorted newest first; last
// activity is the registration date or the latest upload, whichever is later.
func AdminRecord(vendor model.Vendor, rec model.ReconciledStatus, docs []model.Document) model.AdminRecord {
	sorted := make([]model.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].UploadedAt.After(sorted[b].UploadedAt)
	})

	infos := make([]model.DocumentInfo, len(sorted))
	for i, doc := range sorted {
		infos[i] = model.DocumentInfo{
			ID:         doc.ID,
			Name:       doc.Filename,
			Category:   doc.Category,
			UploadedAt: doc.UploadedAt,
		}
	}

	last := lastActivity(vendor, sorted)
	return model.AdminRecord{
		ID:                vendor.ID,
		Name:              vendor.Name,
		Email:             vendor.Email,
		TaxID:             vendor.TaxID,
		Category:          vendor.Category,
		Status:            rec.Status,
		Approved:          rec.Status == model.StatusApproved,
		HomologationScore: rec.HomologationScore,
		EffectiveScore:    rec.EffectiveScore,
		SheetIQF:          rec.SheetIQF,
		QCAverage:         rec.QCAverage,
		QCSampleCount:     rec.QCSampleCount,
		Observations:      rec.Observations,
		ManualNote:        rec.ManualNote,
		ManualReference:   rec.ManualReference,
		DecidedAt:         rec.DecidedAt,
		Documents:         infos,
		TotalDocuments:    len(infos),
		LastActivity:      last,
		RegisteredAt:      vendor.RegisteredAt,
	}
}

// PortalSummary projects the reconciled status into the simplified
// vendor-facing view. The average defaults to 0 and the evaluation count to
// 1 so the portal never renders an average of zero samples; feedback is the
// semicolon-joined observation list or a pending placeholder.
func PortalSummary(vendor model.Vendor, rec model.ReconciledStatus, docs []model.Document) model.PortalSummary {
	occurrences := make([]string, 0, len(rec.Observations))
	for _, obs := range rec.Observations {
		if trimmed := strings.TrimSpace(obs); trimmed != "" {
			occurrences = append(occurrences, trimmed)
		}
	}
	feedback := pendingFeedback
	if len(occurrences) > 0 {
		feedback = strings.Join(occurrences, "; ")
	}

	var average float64
	if score := firstScore(rec.EffectiveScore, rec.QCAverage, rec.SheetIQF); score != nil {
		average = *score
	}

	evaluations := rec.QCSampleCount
	if evaluations <= 0 {
		evaluations = 1
	}

	var homologation float64
	var homologationText string
	if rec.HomologationScore != nil {
		homologation = *rec.HomologationScore
		homologationText = strings.ReplaceAll(fmt.Sprintf("%.2f", homologation), ".", ",")
	}

	last := lastActivity(vendor, docs)
	if last == nil && !vendor.RegisteredAt.IsZero() {
		registered := vendor.RegisteredAt
		last = &registered
	}
	var next *time.Time
	if last != nil {
		n := last.Add(reevaluationInterval)
		next = &n
	}

	return model.PortalSummary{
		ID:                    vendor.ID,
		Name:                  vendor.Name,
		Email:                 vendor.Email,
		TaxID:                 vendor.TaxID,
		Category:              vendor.Category,
		Status:                rec.Status,
		StatusLabel:           rec.Status.Label(),
		AverageScore:          average,
		HomologationScore:     homologation,
		HomologationScoreText: homologationText,
		TotalEvaluations:      evaluations,
		Occurrences:           occurrences,
		Feedback:              feedback,
		LastActivity:          last,
		NextReevaluation:      next,
	}
}

func lastActivity(vendor model.Vendor, docs []model.Document) *time.Time {
	var last time.Time
	if !vendor.RegisteredAt.IsZero() {
		last = vendor.RegisteredAt
	}
	for _, doc := range docs {
		if doc.UploadedAt.After(last) {
			last = doc.UploadedAt
		}
	}
	if last.IsZero() {
		return nil
	}
	return &last
}
