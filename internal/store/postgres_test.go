package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-portal/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetVendor_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM vendors WHERE id = \$1`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetVendor(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateVendor(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO vendors`).
		WithArgs(pgxmock.AnyArg(), "Acme", "a@acme.com", "123", "hash", "eletrica", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	vendor := &model.Vendor{Name: "Acme", Email: "a@acme.com", TaxID: "123", PasswordHash: "hash", Category: "eletrica"}
	err := s.CreateVendor(context.Background(), vendor)
	require.NoError(t, err)
	assert.NotEmpty(t, vendor.ID)
	assert.False(t, vendor.RegisteredAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOverride(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(vendor_id\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "v1", pgxmock.AnyArg(), "APPROVED", "liberado", pgxmock.AnyArg(), false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	override := &model.ManualOverride{VendorID: "v1", Decision: model.StatusApproved, Note: "liberado"}
	err := s.UpsertOverride(context.Background(), override)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteVendor_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM manual_overrides WHERE vendor_id = \$1`).
		WithArgs("v1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM documents WHERE vendor_id = \$1`).
		WithArgs("v1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM vendors WHERE id = \$1`).
		WithArgs("v1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := s.DeleteVendor(context.Background(), "v1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteVendor_MissingRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM manual_overrides WHERE vendor_id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM documents WHERE vendor_id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM vendors WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := s.DeleteVendor(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetDocumentContent_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE documents SET content = \$1`).
		WithArgs([]byte("data"), "application/pdf", "missing-doc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetDocumentContent(context.Background(), "missing-doc", []byte("data"), "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetVendorRecovery(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	expires := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectExec(`UPDATE vendors SET recovery_token`).
		WithArgs("123456", &expires, "v1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetVendorRecovery(context.Background(), "v1", "123456", &expires)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
