// Package server exposes the vendor portal over HTTP: public registration
// and qualification lookups, the authenticated vendor portal and the
// role-gated admin surface. Handlers stay thin; reconciliation lives in
// internal/reconcile and spreadsheet parsing in internal/sheet.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vendor-portal/internal/mailer"
	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/sheet"
	"github.com/sells-group/vendor-portal/internal/storage"
	"github.com/sells-group/vendor-portal/internal/store"
)

// Config holds the server's own settings; persistence and mail are injected
// as constructed collaborators.
type Config struct {
	AllowedOrigins []string

	// Admin login allow-list and shared bcrypt credential.
	AdminEmails       []string
	AdminPasswordHash string
	// ContactRecipient receives contact-form relays.
	ContactRecipient string

	// Spreadsheet search path and filenames.
	SheetDirs        []string
	HomologationFile string
	QualityFile      string
	RosterFile       string
	OverridesFile    string
}

// Server wires the HTTP surface to the store, disk storage and mailer.
type Server struct {
	cfg      Config
	store    store.Store
	resolver *storage.Resolver
	mailer   *mailer.Mailer
	auth     *Auth
}

// New creates a Server. mailer may be disabled (no SMTP host); email-sending
// paths then degrade to logged no-ops.
func New(cfg Config, st store.Store, resolver *storage.Resolver, m *mailer.Mailer, auth *Auth) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		mailer:   m,
		auth:     auth,
	}
}

// Router builds the chi router with CORS and all portal routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/password/recover", s.handlePasswordRecover)
		r.Post("/password/validate", s.handlePasswordValidate)
		r.Post("/password/reset", s.handlePasswordReset)
		r.Post("/contact", s.handleContact)

		r.Get("/categories", s.handleCategories)
		r.Post("/required-documents", s.handleRequiredDocuments)
		r.Get("/homologation", s.handleHomologationLookup)
		r.Get("/vendors", s.handleVendorsPublic)
		r.Post("/documents", s.handleDocumentUpload)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth(""))
			r.Get("/portal/summary", s.handlePortalSummary)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(roleAdmin))
				r.Get("/dashboard", s.handleAdminDashboard)
				r.Get("/vendors", s.handleAdminVendors)
				r.Patch("/vendors/{id}/score", s.handleAdminScore)
				r.Post("/vendors/{id}/decision", s.handleAdminDecision)
				r.Delete("/vendors/{id}", s.handleAdminDeleteVendor)
				r.Get("/documents/{id}/download", s.handleAdminDownload)
				r.Get("/notifications", s.handleAdminNotifications)
			})
		})
	})

	return r
}

// loadSheets reads the homologation roster and quality-control log. A
// missing or unreadable workbook degrades to nil rows; reconciliation then
// proceeds on the remaining sources. Both files load concurrently since each
// is parsed fully into memory per request.
func (s *Server) loadSheets(ctx context.Context) ([]model.HomologationRow, []model.QualityControlRow) {
	var homRows []model.HomologationRow
	var qcRows []model.QualityControlRow

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		path, ok := sheet.Locate(s.cfg.HomologationFile, s.cfg.SheetDirs)
		if !ok {
			return nil
		}
		rows, err := sheet.LoadHomologation(path)
		if err != nil {
			zap.L().Warn("homologation sheet unreadable", zap.String("path", path), zap.Error(err))
			return nil
		}
		homRows = rows
		return nil
	})
	g.Go(func() error {
		path, ok := sheet.Locate(s.cfg.QualityFile, s.cfg.SheetDirs)
		if !ok {
			return nil
		}
		rows, err := sheet.LoadQualityControl(path)
		if err != nil {
			zap.L().Warn("quality control sheet unreadable", zap.String("path", path), zap.Error(err))
			return nil
		}
		qcRows = rows
		return nil
	})
	_ = g.Wait()

	return homRows, qcRows
}

// loadRoster locates and parses the CLAF roster. Unlike loadSheets this does
// not degrade: the category endpoints exist only to serve roster content.
func (s *Server) loadRoster() (*sheet.Roster, error) {
	path, ok := sheet.Locate(s.cfg.RosterFile, s.cfg.SheetDirs)
	if !ok {
		return nil, store.ErrNotFound
	}
	return sheet.LoadRoster(path)
}

// loadOverrides returns the requirement overrides, or nil when none are
// configured or the file is absent.
func (s *Server) loadOverrides() *sheet.Overrides {
	if s.cfg.OverridesFile == "" {
		return nil
	}
	path, ok := sheet.Locate(s.cfg.OverridesFile, s.cfg.SheetDirs)
	if !ok {
		return nil
	}
	overrides, err := sheet.LoadOverrides(path)
	if err != nil {
		zap.L().Warn("requirement overrides unreadable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return overrides
}

// decodeJSON decodes the request body into v, tolerating an empty body.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
