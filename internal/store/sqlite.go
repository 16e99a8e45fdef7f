package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vendor-portal/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local and
// single-host deployments where running Postgres is not worth it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS vendors (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL UNIQUE,
	tax_id           TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	category         TEXT,
	registered_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	recovery_token   TEXT,
	recovery_expires DATETIME
);

CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	vendor_id   TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	filename    TEXT NOT NULL,
	category    TEXT,
	mime_type   TEXT,
	content     BLOB,
	uploaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS manual_overrides (
	id              TEXT PRIMARY KEY,
	vendor_id       TEXT NOT NULL UNIQUE REFERENCES vendors(id) ON DELETE CASCADE,
	score           REAL,
	decision        TEXT,
	note            TEXT,
	reference_score REAL,
	notified        INTEGER NOT NULL DEFAULT 0,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	decided_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name);
CREATE INDEX IF NOT EXISTS idx_vendors_recovery_token ON vendors(recovery_token);
CREATE INDEX IF NOT EXISTS idx_documents_vendor_id ON documents(vendor_id);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteVendorColumns = `id, name, email, tax_id, password_hash, COALESCE(category, ''), registered_at, COALESCE(recovery_token, ''), recovery_expires`

func (s *SQLiteStore) CreateVendor(ctx context.Context, vendor *model.Vendor) error {
	if vendor.ID == "" {
		vendor.ID = uuid.New().String()
	}
	if vendor.RegisteredAt.IsZero() {
		vendor.RegisteredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, email, tax_id, password_hash, category, registered_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vendor.ID, vendor.Name, vendor.Email, vendor.TaxID, vendor.PasswordHash, vendor.Category, vendor.RegisteredAt,
	)
	return eris.Wrap(err, "sqlite: insert vendor")
}

func scanSQLiteVendor(row *sql.Row) (*model.Vendor, error) {
	var v model.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Email, &v.TaxID, &v.PasswordHash,
		&v.Category, &v.RegisteredAt, &v.RecoveryToken, &v.RecoveryExpires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan vendor")
	}
	return &v, nil
}

func (s *SQLiteStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	return scanSQLiteVendor(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVendorColumns+` FROM vendors WHERE id = ?`, id))
}

func (s *SQLiteStore) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	return scanSQLiteVendor(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVendorColumns+` FROM vendors WHERE lower(email) = lower(?)`, email))
}

func (s *SQLiteStore) GetVendorByTaxID(ctx context.Context, taxID string) (*model.Vendor, error) {
	return scanSQLiteVendor(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVendorColumns+` FROM vendors WHERE tax_id = ?`, taxID))
}

func (s *SQLiteStore) GetVendorByRecoveryToken(ctx context.Context, token string) (*model.Vendor, error) {
	return scanSQLiteVendor(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVendorColumns+` FROM vendors WHERE recovery_token = ? AND recovery_expires > ?`,
		token, time.Now().UTC()))
}

func (s *SQLiteStore) ListVendors(ctx context.Context, filter VendorFilter) ([]model.Vendor, error) {
	query := `SELECT ` + sqliteVendorColumns + ` FROM vendors WHERE true`
	args := []any{}

	if filter.Query != "" {
		query += ` AND (lower(name) LIKE ? OR tax_id LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		args = append(args, pattern, "%"+filter.Query+"%")
	}
	query += ` ORDER BY registered_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vendors")
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.TaxID, &v.PasswordHash,
			&v.Category, &v.RegisteredAt, &v.RecoveryToken, &v.RecoveryExpires); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vendor")
		}
		vendors = append(vendors, v)
	}
	return vendors, eris.Wrap(rows.Err(), "sqlite: list vendors")
}

func (s *SQLiteStore) SetVendorRecovery(ctx context.Context, id, token string, expires *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vendors SET recovery_token = NULLIF(?, ''), recovery_expires = ? WHERE id = ?`,
		token, expires, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vendor recovery %s", id)
	}
	return requireRowAffected(res)
}

func (s *SQLiteStore) SetVendorPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vendors SET password_hash = ?, recovery_token = NULL, recovery_expires = NULL WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vendor password %s", id)
	}
	return requireRowAffected(res)
}

func (s *SQLiteStore) DeleteVendor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete vendor")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM manual_overrides WHERE vendor_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete override for vendor %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE vendor_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete documents for vendor %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete vendor %s", id)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete vendor")
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, vendor_id, filename, category, mime_type, content, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.VendorID, doc.Filename, doc.Category, doc.MIMEType, doc.Content, doc.UploadedAt,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, vendor_id, filename, COALESCE(category, ''), COALESCE(mime_type, ''), COALESCE(content, x''), uploaded_at FROM documents WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.VendorID, &d.Filename, &d.Category, &d.MIMEType, &d.Content, &d.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", id)
	}
	return &d, nil
}

const sqliteDocumentColumns = `id, vendor_id, filename, COALESCE(category, ''), COALESCE(mime_type, ''), uploaded_at`

func (s *SQLiteStore) ListDocuments(ctx context.Context, vendorID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteDocumentColumns+` FROM documents WHERE vendor_id = ? ORDER BY uploaded_at DESC`,
		vendorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()
	return scanSQLiteDocuments(rows)
}

func (s *SQLiteStore) ListDocumentsMissingContent(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteDocumentColumns+` FROM documents WHERE content IS NULL OR length(content) = 0 ORDER BY uploaded_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents missing content")
	}
	defer rows.Close()
	return scanSQLiteDocuments(rows)
}

func scanSQLiteDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.VendorID, &d.Filename, &d.Category, &d.MIMEType, &d.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: document rows")
}

func (s *SQLiteStore) SetDocumentContent(ctx context.Context, id string, content []byte, mimeType string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET content = ?, mime_type = COALESCE(NULLIF(?, ''), mime_type) WHERE id = ?`,
		content, mimeType, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set document content %s", id)
	}
	return requireRowAffected(res)
}

func (s *SQLiteStore) GetOverride(ctx context.Context, vendorID string) (*model.ManualOverride, error) {
	var o model.ManualOverride
	var decision string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, vendor_id, score, COALESCE(decision, ''), COALESCE(note, ''), reference_score, notified, updated_at, decided_at FROM manual_overrides WHERE vendor_id = ?`,
		vendorID,
	).Scan(&o.ID, &o.VendorID, &o.Score, &decision, &o.Note, &o.ReferenceScore, &o.Notified, &o.UpdatedAt, &o.DecidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get override for vendor %s", vendorID)
	}
	o.Decision = model.Status(decision)
	return &o, nil
}

func (s *SQLiteStore) UpsertOverride(ctx context.Context, override *model.ManualOverride) error {
	if override.ID == "" {
		override.ID = uuid.New().String()
	}
	override.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO manual_overrides (id, vendor_id, score, decision, note, reference_score, notified, updated_at, decided_at)
		 VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor_id) DO UPDATE SET
			score = excluded.score,
			decision = excluded.decision,
			note = excluded.note,
			reference_score = excluded.reference_score,
			notified = excluded.notified,
			updated_at = excluded.updated_at,
			decided_at = excluded.decided_at`,
		override.ID, override.VendorID, override.Score, string(override.Decision), override.Note,
		override.ReferenceScore, override.Notified, override.UpdatedAt, override.DecidedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert override for vendor %s", override.VendorID)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
