package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/mailer"
	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/normalize"
	"github.com/sells-group/vendor-portal/internal/reconcile"
	"github.com/sells-group/vendor-portal/internal/store"
)

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.store.ListVendors(r.Context(), store.VendorFilter{})
	if err != nil {
		zap.L().Error("dashboard vendor list failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	homRows, qcRows := s.loadSheets(r.Context())

	counts := map[model.Status]int{}
	totalDocuments := 0
	for _, vendor := range vendors {
		override, err := s.store.GetOverride(r.Context(), vendor.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("dashboard override lookup failed", zap.String("vendor", vendor.ID), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to build dashboard")
			return
		}
		docs, err := s.store.ListDocuments(r.Context(), vendor.ID)
		if err != nil {
			zap.L().Error("dashboard document list failed", zap.String("vendor", vendor.ID), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to build dashboard")
			return
		}
		totalDocuments += len(docs)

		rec := reconcile.Reconcile(vendor, override, homRows, qcRows)
		counts[rec.Status]++
	}

	respondJSON(w, http.StatusOK, map[string]int{
		"total_registered":   len(vendors),
		"total_approved":     counts[model.StatusApproved],
		"total_under_review": counts[model.StatusUnderReview] + counts[model.StatusNotYetRegistered],
		"total_rejected":     counts[model.StatusRejected],
		"total_documents":    totalDocuments,
	})
}

func (s *Server) handleAdminVendors(w http.ResponseWriter, r *http.Request) {
	filter := store.VendorFilter{Query: r.URL.Query().Get("search")}
	vendors, err := s.store.ListVendors(r.Context(), filter)
	if err != nil {
		zap.L().Error("admin vendor list failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to list vendors")
		return
	}

	homRows, qcRows := s.loadSheets(r.Context())

	records := make([]model.AdminRecord, 0, len(vendors))
	for _, vendor := range vendors {
		override, err := s.store.GetOverride(r.Context(), vendor.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("admin override lookup failed", zap.String("vendor", vendor.ID), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to list vendors")
			return
		}
		docs, err := s.store.ListDocuments(r.Context(), vendor.ID)
		if err != nil {
			zap.L().Error("admin document list failed", zap.String("vendor", vendor.ID), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to list vendors")
			return
		}
		rec := reconcile.Reconcile(vendor, override, homRows, qcRows)
		records = append(records, reconcile.AdminRecord(vendor, rec, docs))
	}
	respondJSON(w, http.StatusOK, records)
}

// adminVendorPayload recomputes the full admin record for a vendor after a
// mutation, so the caller's UI refreshes in one round trip.
func (s *Server) adminVendorPayload(r *http.Request, vendor model.Vendor) model.AdminRecord {
	rec, docs, err := s.reconcileVendor(r, vendor)
	if err != nil {
		return reconcile.AdminRecord(vendor, model.ReconciledStatus{}, nil)
	}
	return reconcile.AdminRecord(vendor, rec, docs)
}

func (s *Server) handleAdminScore(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.store.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("score vendor lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to update score")
		return
	}

	var req struct {
		HomologationScore any `json:"homologation_score"`
	}
	if err := decodeJSON(r, &req); err != nil || req.HomologationScore == nil {
		respondMessage(w, http.StatusBadRequest, "homologation_score is required")
		return
	}
	score, ok := normalize.NumberOf(req.HomologationScore)
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid homologation score")
		return
	}

	override, err := s.store.GetOverride(r.Context(), vendor.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("score override lookup failed", zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to update score")
			return
		}
		override = &model.ManualOverride{VendorID: vendor.ID}
	}
	override.Score = &score
	override.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertOverride(r.Context(), override); err != nil {
		zap.L().Error("score persist failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to update score")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "homologation score updated",
		"vendor":  s.adminVendorPayload(r, *vendor),
	})
}

func (s *Server) handleAdminDecision(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.store.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("decision vendor lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to record decision")
		return
	}

	var req struct {
		Status         string `json:"status"`
		Note           string `json:"note"`
		ReferenceScore any    `json:"reference_score"`
		SendEmail      bool   `json:"send_email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	decision := model.Status(req.Status)
	if decision != model.StatusApproved && decision != model.StatusRejected && decision != model.StatusUnderReview {
		respondMessage(w, http.StatusBadRequest, "invalid status")
		return
	}

	var reference *float64
	if req.ReferenceScore != nil {
		if v, ok := normalize.NumberOf(req.ReferenceScore); ok {
			reference = &v
		}
	}

	override, err := s.store.GetOverride(r.Context(), vendor.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("decision override lookup failed", zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to record decision")
			return
		}
		override = &model.ManualOverride{VendorID: vendor.ID}
	}

	now := time.Now().UTC()
	override.Decision = decision
	override.Note = req.Note
	override.ReferenceScore = reference
	override.UpdatedAt = now
	override.DecidedAt = &now

	emailSent := false
	if req.SendEmail && s.mailer.Enabled() {
		s.mailer.Send(r.Context(), vendor.Email, "Resultado da Homologação",
			mailer.DecisionEmail(vendor.Name, decision, req.Note))
		emailSent = true
	}
	override.Notified = emailSent

	if err := s.store.UpsertOverride(r.Context(), override); err != nil {
		zap.L().Error("decision persist failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to record decision")
		return
	}

	zap.L().Info("decision recorded",
		zap.String("vendor", vendor.ID),
		zap.String("status", string(decision)),
		zap.Bool("email_sent", emailSent),
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"message":    "decision recorded",
		"email_sent": emailSent,
		"vendor":     s.adminVendorPayload(r, *vendor),
	})
}

func (s *Server) handleAdminDeleteVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteVendor(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("vendor delete failed", zap.String("vendor", id), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to delete vendor")
		return
	}
	s.resolver.RemoveOwner(id)

	zap.L().Info("vendor deleted", zap.String("vendor", id))
	respondMessage(w, http.StatusOK, "vendor deleted")
}

// notification is one admin feed event: a new registration or an upload.
type notification struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Timestamp   time.Time         `json:"timestamp"`
	Details     map[string]string `json:"details"`
}

func (s *Server) handleAdminNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	vendors, err := s.store.ListVendors(r.Context(), store.VendorFilter{})
	if err != nil {
		zap.L().Error("notifications vendor list failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	var events []notification
	for _, vendor := range vendors {
		if vendor.RegisteredAt.IsZero() {
			continue
		}
		events = append(events, notification{
			ID:          "registration-" + vendor.ID,
			Type:        "registration",
			Title:       "New vendor registered",
			Description: vendor.Name,
			Timestamp:   vendor.RegisteredAt,
			Details: map[string]string{
				"email":  vendor.Email,
				"tax_id": vendor.TaxID,
			},
		})

		docs, err := s.store.ListDocuments(r.Context(), vendor.ID)
		if err != nil {
			zap.L().Error("notifications document list failed", zap.String("vendor", vendor.ID), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to list notifications")
			return
		}
		for _, doc := range docs {
			if doc.UploadedAt.IsZero() {
				continue
			}
			events = append(events, notification{
				ID:          "document-" + doc.ID,
				Type:        "document",
				Title:       "Document uploaded",
				Description: vendor.Name + " attached " + doc.Filename,
				Timestamp:   doc.UploadedAt,
				Details: map[string]string{
					"vendor":   vendor.Name,
					"document": doc.Filename,
					"category": doc.Category,
				},
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []notification{}
	}
	respondJSON(w, http.StatusOK, events)
}
