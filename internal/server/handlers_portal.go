package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/reconcile"
	"github.com/sells-group/vendor-portal/internal/store"
)

func (s *Server) handlePortalSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok || claims.Subject == "" {
		respondMessage(w, http.StatusBadRequest, "invalid vendor identity")
		return
	}

	vendor, err := s.store.GetVendor(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("portal vendor lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to build portal summary")
		return
	}

	rec, docs, err := s.reconcileVendor(r, *vendor)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "failed to build portal summary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary": reconcile.PortalSummary(*vendor, rec, docs),
	})
}

// reconcileVendor assembles a vendor's reconciled status plus its documents,
// loading the spreadsheet snapshot on the way.
func (s *Server) reconcileVendor(r *http.Request, vendor model.Vendor) (model.ReconciledStatus, []model.Document, error) {
	homRows, qcRows := s.loadSheets(r.Context())

	override, err := s.store.GetOverride(r.Context(), vendor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Error("override lookup failed", zap.String("vendor", vendor.ID), zap.Error(err))
		return model.ReconciledStatus{}, nil, err
	}
	docs, err := s.store.ListDocuments(r.Context(), vendor.ID)
	if err != nil {
		zap.L().Error("document list failed", zap.String("vendor", vendor.ID), zap.Error(err))
		return model.ReconciledStatus{}, nil, err
	}

	rec := reconcile.Reconcile(vendor, override, homRows, qcRows)
	return rec, docs, nil
}

func (s *Server) handleVendorsPublic(w http.ResponseWriter, r *http.Request) {
	filter := store.VendorFilter{Query: r.URL.Query().Get("name")}
	vendors, err := s.store.ListVendors(r.Context(), filter)
	if err != nil {
		zap.L().Error("vendor list failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to list vendors")
		return
	}

	out := make([]map[string]string, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, map[string]string{
			"id":     v.ID,
			"name":   v.Name,
			"email":  v.Email,
			"tax_id": v.TaxID,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
