package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-portal/internal/db"
	"github.com/sells-group/vendor-portal/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	vendorColumns   = `id, name, email, tax_id, password_hash, COALESCE(category, ''), registered_at, COALESCE(recovery_token, ''), recovery_expires`
	documentColumns = `id, vendor_id, filename, COALESCE(category, ''), COALESCE(mime_type, ''), uploaded_at`
	overrideColumns = `id, vendor_id, score, COALESCE(decision, ''), COALESCE(note, ''), reference_score, notified, updated_at, decided_at`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_vendor":          `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`,
	"get_vendor_by_email": `SELECT ` + vendorColumns + ` FROM vendors WHERE lower(email) = lower($1)`,
	"list_documents":      `SELECT ` + documentColumns + ` FROM documents WHERE vendor_id = $1 ORDER BY uploaded_at DESC`,
	"get_override":        `SELECT ` + overrideColumns + ` FROM manual_overrides WHERE vendor_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests and by commands
// that already hold a pool for bulk operations.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (the bulk vendor import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS vendors (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL UNIQUE,
	tax_id           TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	category         TEXT,
	registered_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	recovery_token   TEXT,
	recovery_expires TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vendor_id   TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	filename    TEXT NOT NULL,
	category    TEXT,
	mime_type   TEXT,
	content     BYTEA,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS manual_overrides (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vendor_id       TEXT NOT NULL UNIQUE REFERENCES vendors(id) ON DELETE CASCADE,
	score           DOUBLE PRECISION,
	decision        TEXT,
	note            TEXT,
	reference_score DOUBLE PRECISION,
	notified        BOOLEAN NOT NULL DEFAULT false,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	decided_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name);
CREATE INDEX IF NOT EXISTS idx_vendors_recovery_token ON vendors(recovery_token);
CREATE INDEX IF NOT EXISTS idx_documents_vendor_id ON documents(vendor_id);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateVendor(ctx context.Context, vendor *model.Vendor) error {
	if vendor.ID == "" {
		vendor.ID = uuid.New().String()
	}
	if vendor.RegisteredAt.IsZero() {
		vendor.RegisteredAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vendors (id, name, email, tax_id, password_hash, category, registered_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vendor.ID, vendor.Name, vendor.Email, vendor.TaxID, vendor.PasswordHash, vendor.Category, vendor.RegisteredAt,
	)
	return eris.Wrap(err, "postgres: insert vendor")
}

func (s *PostgresStore) scanVendor(row pgx.Row) (*model.Vendor, error) {
	var v model.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Email, &v.TaxID, &v.PasswordHash,
		&v.Category, &v.RegisteredAt, &v.RecoveryToken, &v.RecoveryExpires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan vendor")
	}
	return &v, nil
}

func (s *PostgresStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	return s.scanVendor(s.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
}

func (s *PostgresStore) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	return s.scanVendor(s.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE lower(email) = lower($1)`, email))
}

func (s *PostgresStore) GetVendorByTaxID(ctx context.Context, taxID string) (*model.Vendor, error) {
	return s.scanVendor(s.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE tax_id = $1`, taxID))
}

func (s *PostgresStore) GetVendorByRecoveryToken(ctx context.Context, token string) (*model.Vendor, error) {
	return s.scanVendor(s.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE recovery_token = $1 AND recovery_expires > now()`, token))
}

func (s *PostgresStore) ListVendors(ctx context.Context, filter VendorFilter) ([]model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR tax_id LIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}
	query += ` ORDER BY registered_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vendors")
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.TaxID, &v.PasswordHash,
			&v.Category, &v.RegisteredAt, &v.RecoveryToken, &v.RecoveryExpires); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vendor")
		}
		vendors = append(vendors, v)
	}
	return vendors, eris.Wrap(rows.Err(), "postgres: list vendors")
}

func (s *PostgresStore) SetVendorRecovery(ctx context.Context, id, token string, expires *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vendors SET recovery_token = NULLIF($1, ''), recovery_expires = $2 WHERE id = $3`,
		token, expires, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vendor recovery %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetVendorPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vendors SET password_hash = $1, recovery_token = NULL, recovery_expires = NULL WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vendor password %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteVendor(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete vendor")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM manual_overrides WHERE vendor_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete override for vendor %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE vendor_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete documents for vendor %s", id)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete vendor %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete vendor")
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, vendor_id, filename, category, mime_type, content, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.VendorID, doc.Filename, doc.Category, doc.MIMEType, doc.Content, doc.UploadedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, vendor_id, filename, COALESCE(category, ''), COALESCE(mime_type, ''), COALESCE(content, ''::bytea), uploaded_at FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.VendorID, &d.Filename, &d.Category, &d.MIMEType, &d.Content, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}
	return &d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, vendorID string) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE vendor_id = $1 ORDER BY uploaded_at DESC`,
		vendorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (s *PostgresStore) ListDocumentsMissingContent(ctx context.Context) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content IS NULL OR length(content) = 0 ORDER BY uploaded_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents missing content")
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func scanDocumentRows(rows pgx.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.VendorID, &d.Filename, &d.Category, &d.MIMEType, &d.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: document rows")
}

func (s *PostgresStore) SetDocumentContent(ctx context.Context, id string, content []byte, mimeType string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET content = $1, mime_type = COALESCE(NULLIF($2, ''), mime_type) WHERE id = $3`,
		content, mimeType, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document content %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetOverride(ctx context.Context, vendorID string) (*model.ManualOverride, error) {
	var o model.ManualOverride
	var decision string
	err := s.pool.QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM manual_overrides WHERE vendor_id = $1`,
		vendorID,
	).Scan(&o.ID, &o.VendorID, &o.Score, &decision, &o.Note, &o.ReferenceScore, &o.Notified, &o.UpdatedAt, &o.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get override for vendor %s", vendorID)
	}
	o.Decision = model.Status(decision)
	return &o, nil
}

func (s *PostgresStore) UpsertOverride(ctx context.Context, override *model.ManualOverride) error {
	if override.ID == "" {
		override.ID = uuid.New().String()
	}
	override.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO manual_overrides (id, vendor_id, score, decision, note, reference_score, notified, updated_at, decided_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
		 ON CONFLICT (vendor_id) DO UPDATE SET
			score = EXCLUDED.score,
			decision = EXCLUDED.decision,
			note = EXCLUDED.note,
			reference_score = EXCLUDED.reference_score,
			notified = EXCLUDED.notified,
			updated_at = EXCLUDED.updated_at,
			decided_at = EXCLUDED.decided_at`,
		override.ID, override.VendorID, override.Score, string(override.Decision), override.Note,
		override.ReferenceScore, override.Notified, override.UpdatedAt, override.DecidedAt,
	)
	return eris.Wrapf(err, "postgres: upsert override for vendor %s", override.VendorID)
}
