// Package model defines the core domain types for the vendor qualification portal.
package model

import "time"

// Status is the reconciled qualification status of a vendor.
type Status string

const (
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusUnderReview      Status = "UNDER_REVIEW"
	StatusNotYetRegistered Status = "NOT_YET_REGISTERED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusUnderReview, StatusNotYetRegistered:
		return true
	}
	return false
}

// Label returns a human-readable form of the status ("Under Review").
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusUnderReview:
		return "Under Review"
	case StatusNotYetRegistered:
		return "Not Yet Registered"
	}
	return string(s)
}

// Vendor is a registered supplier undergoing qualification.
// Email and TaxID are unique across vendors.
type Vendor struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	TaxID           string     `json:"tax_id"` // CNPJ
	PasswordHash    string     `json:"-"`
	Category        string     `json:"category,omitempty"`
	RegisteredAt    time.Time  `json:"registered_at"`
	RecoveryToken   string     `json:"-"`
	RecoveryExpires *time.Time `json:"-"`
}

// Document is one uploaded compliance file. Content may be empty when only a
// disk copy exists; the backfill pass reconciles the two.
type Document struct {
	ID         string    `json:"id"`
	VendorID   string    `json:"vendor_id"`
	Filename   string    `json:"filename"`
	Category   string    `json:"category"`
	MIMEType   string    `json:"mime_type,omitempty"`
	Content    []byte    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ManualOverride is the admin-authored correction layered over
// spreadsheet-derived data. At most one exists per vendor; it is created
// lazily on the first admin edit.
type ManualOverride struct {
	ID             string     `json:"id"`
	VendorID       string     `json:"vendor_id"`
	Score          *float64   `json:"score,omitempty"`    // manual homologation score
	Decision       Status     `json:"decision,omitempty"` // empty when no decision recorded
	Note           string     `json:"note,omitempty"`
	ReferenceScore *float64   `json:"reference_score,omitempty"`
	Notified       bool       `json:"notified"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

// HomologationRow is one vendor record from the homologation roster
// spreadsheet. Not persisted; re-imported on every reconciliation.
type HomologationRow struct {
	Agent        string   // display name as it appears in the roster
	TradeName    string   // optional secondary name column
	TaxID        string   // optional CNPJ column, used as a matching fallback
	Code         *int     // optional numeric id
	Homologation *float64 // homologation score
	IQF          *float64 // quality index from the roster itself
	Approved     string   // "S", "N" or blank
}

// QualityControlRow is one monthly quality-control grade for a vendor name.
type QualityControlRow struct {
	AgentName   string
	Grade       *float64
	Observation string
}

// ReconciledStatus is the authoritative qualification tuple computed fresh on
// every query from overrides plus the current spreadsheet snapshot.
type ReconciledStatus struct {
	Status             Status     `json:"status"`
	EffectiveScore     *float64   `json:"effective_score,omitempty"`
	HomologationScore  *float64   `json:"homologation_score,omitempty"`
	SheetIQF           *float64   `json:"sheet_iqf,omitempty"`
	QCAverage          *float64   `json:"qc_average,omitempty"`
	QCSampleCount      int        `json:"qc_sample_count"`
	Observations       []string   `json:"observations,omitempty"`
	MatchedAgent       string     `json:"matched_agent,omitempty"`
	ApprovedFlag       string     `json:"approved_flag,omitempty"`
	ManualNote         string     `json:"manual_note,omitempty"`
	ManualReference    *float64   `json:"manual_reference,omitempty"`
	DecisionOverridden bool       `json:"decision_overridden"`
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
}

// DocumentInfo is the document metadata included in the admin view.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AdminRecord is the full-fidelity admin projection of a vendor plus its
// reconciled status and documents.
type AdminRecord struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	TaxID             string         `json:"tax_id"`
	Category          string         `json:"category,omitempty"`
	Status            Status         `json:"status"`
	Approved          bool           `json:"approved"`
	HomologationScore *float64       `json:"homologation_score,omitempty"`
	EffectiveScore    *float64       `json:"effective_score,omitempty"`
	SheetIQF          *float64       `json:"sheet_iqf,omitempty"`
	QCAverage         *float64       `json:"qc_average,omitempty"`
	QCSampleCount     int            `json:"qc_sample_count"`
	Observations      []string       `json:"observations,omitempty"`
	ManualNote        string         `json:"manual_note,omitempty"`
	ManualReference   *float64       `json:"manual_reference,omitempty"`
	DecidedAt         *time.Time     `json:"decided_at,omitempty"`
	Documents         []DocumentInfo `json:"documents"`
	TotalDocuments    int            `json:"total_documents"`
	LastActivity      *time.Time     `json:"last_activity,omitempty"`
	RegisteredAt      time.Time      `json:"registered_at"`
}

// PortalSummary is the simplified vendor-facing projection.
type PortalSummary struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	TaxID                 string     `json:"tax_id"`
	Category              string     `json:"category,omitempty"`
	Status                Status     `json:"status"`
	StatusLabel           string     `json:"status_label"`
	AverageScore          float64    `json:"average_score"`
	HomologationScore     float64    `json:"homologation_score"`
	HomologationScoreText string     `json:"homologation_score_text,omitempty"`
	TotalEvaluations      int        `json:"total_evaluations"`
	Occurrences           []string   `json:"occurrences"`
	Feedback              string     `json:"feedback"`
	LastActivity          *time.Time `json:"last_activity,omitempty"`
	NextReevaluation      *time.Time `json:"next_reevaluation,omitempty"`
}
