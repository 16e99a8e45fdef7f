package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-portal/internal/model"
)

// ErrNotFound is returned when a vendor, document or override does not
// exist. Callers translate it to a clear negative result instead of letting
// it bubble as a generic failure.
var ErrNotFound = eris.New("store: not found")

// VendorFilter specifies criteria for listing vendors.
type VendorFilter struct {
	// Query matches against vendor name (case-insensitive) and tax id.
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the vendor portal.
type Store interface {
	// Vendors
	CreateVendor(ctx context.Context, vendor *model.Vendor) error
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error)
	GetVendorByTaxID(ctx context.Context, taxID string) (*model.Vendor, error)
	GetVendorByRecoveryToken(ctx context.Context, token string) (*model.Vendor, error)
	ListVendors(ctx context.Context, filter VendorFilter) ([]model.Vendor, error)
	SetVendorRecovery(ctx context.Context, id, token string, expires *time.Time) error
	SetVendorPassword(ctx context.Context, id, passwordHash string) error
	// DeleteVendor removes the vendor together with its documents and
	// override in one transaction; a failure rolls back the whole mutation.
	DeleteVendor(ctx context.Context, id string) error

	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// ListDocuments returns metadata only; content stays in the database
	// until GetDocument asks for one record.
	ListDocuments(ctx context.Context, vendorID string) ([]model.Document, error)
	ListDocumentsMissingContent(ctx context.Context) ([]model.Document, error)
	SetDocumentContent(ctx context.Context, id string, content []byte, mimeType string) error

	// Overrides
	GetOverride(ctx context.Context, vendorID string) (*model.ManualOverride, error)
	UpsertOverride(ctx context.Context, override *model.ManualOverride) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
