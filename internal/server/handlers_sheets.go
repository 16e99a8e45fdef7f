package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/reconcile"
	"github.com/sells-group/vendor-portal/internal/sheet"
	"github.com/sells-group/vendor-portal/internal/store"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	roster, err := s.loadRoster()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusInternalServerError, "roster spreadsheet not found")
			return
		}
		zap.L().Error("roster load failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to read roster spreadsheet")
		return
	}
	if !roster.HasCategories() {
		respondMessage(w, http.StatusInternalServerError, "category column not found in roster")
		return
	}

	categories := roster.Categories()
	respondJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"total":      len(categories),
	})
}

func (s *Server) handleRequiredDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Category == "" {
		respondMessage(w, http.StatusBadRequest, "category is required")
		return
	}

	roster, err := s.loadRoster()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusInternalServerError, "roster spreadsheet not found")
			return
		}
		zap.L().Error("roster load failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to read roster spreadsheet")
		return
	}
	if !roster.HasRequirements() {
		respondMessage(w, http.StatusInternalServerError, "requirement columns not found in roster")
		return
	}

	docs := roster.RequiredDocuments(req.Category)
	if overrides := s.loadOverrides(); overrides != nil {
		docs = overrides.Apply(req.Category, docs)
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleHomologationLookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("vendor_name")
	if name == "" {
		respondMessage(w, http.StatusBadRequest, "vendor_name parameter is required")
		return
	}

	// This endpoint exists only to serve spreadsheet content, so a missing
	// workbook is reported explicitly instead of degrading.
	homPath, homOK := sheet.Locate(s.cfg.HomologationFile, s.cfg.SheetDirs)
	qcPath, qcOK := sheet.Locate(s.cfg.QualityFile, s.cfg.SheetDirs)
	if !homOK || !qcOK {
		respondMessage(w, http.StatusInternalServerError, "one or more spreadsheet files were not found")
		return
	}

	homRows, err := sheet.LoadHomologation(homPath)
	if err != nil {
		zap.L().Error("homologation sheet load failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to read homologation spreadsheet")
		return
	}
	qcRows, err := sheet.LoadQualityControl(qcPath)
	if err != nil {
		zap.L().Error("quality control sheet load failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to read quality control spreadsheet")
		return
	}

	result, ok := reconcile.Lookup(name, homRows, qcRows)
	if !ok {
		respondMessage(w, http.StatusNotFound, "vendor not found in homologation roster")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"code":            result.Code,
		"name":            result.Agent,
		"status":          result.Status,
		"effective_score": result.EffectiveScore,
		"homologation":    result.Homologation,
		"sheet_iqf":       result.SheetIQF,
		"approved":        result.Approved,
		"occurrences":     nonNil(result.Observations),
		"qc_sample_count": result.SampleCount,
	})
}

// nonNil keeps empty slices serializing as [] instead of null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
