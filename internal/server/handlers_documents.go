package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/backfill"
	"github.com/sells-group/vendor-portal/internal/mailer"
	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/storage"
	"github.com/sells-group/vendor-portal/internal/store"
)

// maxUploadBytes bounds a whole multipart upload request.
const maxUploadBytes = 64 << 20

// allowedExtensions is the upload extension allow-list.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".docx": {},
	".xlsx": {},
}

func extensionAllowed(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	vendorID := r.FormValue("vendor_id")
	category := r.FormValue("category")
	files := r.MultipartForm.File["files"]

	vendor, err := s.store.GetVendor(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("upload vendor lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to upload documents")
		return
	}
	if category == "" || len(files) == 0 {
		respondMessage(w, http.StatusBadRequest, "category and files are required")
		return
	}

	// Validate and stage the whole batch before touching disk or the
	// database, so a rejected batch persists nothing.
	staged := make([]model.Document, 0, len(files))
	for _, header := range files {
		original := header.Filename
		if !extensionAllowed(original) {
			respondMessage(w, http.StatusBadRequest, fmt.Sprintf("file extension not allowed: %s", original))
			return
		}
		name := storage.Sanitize(original)
		if name == "" {
			respondMessage(w, http.StatusBadRequest, "invalid file name")
			return
		}

		file, err := header.Open()
		if err != nil {
			zap.L().Error("upload open failed", zap.String("file", original), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to upload documents")
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			zap.L().Error("upload read failed", zap.String("file", original), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to upload documents")
			return
		}
		if len(content) == 0 {
			respondMessage(w, http.StatusBadRequest, fmt.Sprintf("empty or corrupted file: %s", original))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = backfill.GuessMIME(name)
		}
		staged = append(staged, model.Document{
			VendorID: vendor.ID,
			Filename: name,
			Category: category,
			MIMEType: mimeType,
			Content:  content,
		})
	}

	uploaded := make([]string, 0, len(staged))
	for i := range staged {
		doc := &staged[i]
		if _, err := s.resolver.Write(vendor.ID, doc.Filename, doc.Content); err != nil {
			zap.L().Error("upload disk write failed", zap.String("file", doc.Filename), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, fmt.Sprintf("could not save file %s", doc.Filename))
			return
		}
		if err := s.store.CreateDocument(r.Context(), doc); err != nil {
			zap.L().Error("document persist failed", zap.String("file", doc.Filename), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "failed to upload documents")
			return
		}
		uploaded = append(uploaded, doc.Filename)
	}

	if s.mailer.Enabled() {
		s.mailer.Send(r.Context(), vendor.Email, "Documentos Recebidos",
			mailer.ReceiptEmail(vendor.Name, uploaded))
	}

	zap.L().Info("documents uploaded",
		zap.String("vendor", vendor.ID),
		zap.Int("count", len(uploaded)),
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "documents uploaded",
		"uploaded": uploaded,
	})
}

// handleAdminDownload serves a document's bytes: the canonical disk copy
// first, then the store's binary copy, then the legacy-root scan. A legacy
// hit backfills the store row and the canonical disk path on the way out.
func (s *Server) handleAdminDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "document not found")
			return
		}
		zap.L().Error("document lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to download document")
		return
	}

	var content []byte
	if path, data, found := s.resolver.Locate(doc.VendorID, doc.Filename); found {
		content = data
		if len(doc.Content) == 0 {
			mimeType := doc.MIMEType
			if mimeType == "" {
				mimeType = backfill.GuessMIME(doc.Filename)
			}
			if err := s.store.SetDocumentContent(r.Context(), doc.ID, data, mimeType); err != nil {
				zap.L().Warn("download backfill persist failed", zap.String("document", doc.ID), zap.Error(err))
			}
			doc.MIMEType = mimeType
		}
		canonical := filepath.Join(s.resolver.CanonicalRoot(), doc.VendorID)
		if filepath.Dir(path) != canonical {
			if _, err := s.resolver.Write(doc.VendorID, doc.Filename, data); err != nil {
				zap.L().Warn("download copy-forward failed", zap.String("document", doc.ID), zap.Error(err))
			}
		}
	} else {
		content = doc.Content
	}
	if len(content) == 0 {
		respondMessage(w, http.StatusNotFound, "document content not found")
		return
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = backfill.GuessMIME(doc.Filename)
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		zap.L().Warn("download write failed", zap.String("document", doc.ID), zap.Error(err))
	}
}
