package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-portal/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestVendor(t *testing.T, st *SQLiteStore, name, email, taxID string) *model.Vendor {
	t.Helper()
	vendor := &model.Vendor{Name: name, Email: email, TaxID: taxID, PasswordHash: "hash", Category: "eletrica"}
	require.NoError(t, st.CreateVendor(context.Background(), vendor))
	return vendor
}

func TestSQLite_VendorRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestVendor(t, st, "Acme Comercio", "a@acme.com", "123")

	got, err := st.GetVendor(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Comercio", got.Name)
	assert.Equal(t, "a@acme.com", got.Email)
	assert.Equal(t, "eletrica", got.Category)

	byEmail, err := st.GetVendorByEmail(ctx, "A@ACME.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byTaxID, err := st.GetVendorByTaxID(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byTaxID.ID)
}

func TestSQLite_VendorNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetVendor(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_VendorUniqueEmail(t *testing.T) {
	st := newTestSQLiteStore(t)
	createTestVendor(t, st, "Acme", "same@acme.com", "111")

	dup := &model.Vendor{Name: "Other", Email: "same@acme.com", TaxID: "222", PasswordHash: "h"}
	err := st.CreateVendor(context.Background(), dup)
	assert.Error(t, err)
}

func TestSQLite_ListVendors_Query(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	createTestVendor(t, st, "Acme Comercio", "a@acme.com", "123")
	createTestVendor(t, st, "Beta Servicos", "b@beta.com", "456")

	all, err := st.ListVendors(ctx, VendorFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matched, err := st.ListVendors(ctx, VendorFilter{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Acme Comercio", matched[0].Name)

	byTaxID, err := st.ListVendors(ctx, VendorFilter{Query: "456"})
	require.NoError(t, err)
	require.Len(t, byTaxID, 1)
	assert.Equal(t, "Beta Servicos", byTaxID[0].Name)
}

func TestSQLite_RecoveryTokenFlow(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	expires := time.Now().UTC().Add(10 * time.Minute)
	require.NoError(t, st.SetVendorRecovery(ctx, vendor.ID, "654321", &expires))

	got, err := st.GetVendorByRecoveryToken(ctx, "654321")
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, got.ID)

	// Resetting the password clears the token.
	require.NoError(t, st.SetVendorPassword(ctx, vendor.ID, "newhash"))
	_, err = st.GetVendorByRecoveryToken(ctx, "654321")
	assert.True(t, errors.Is(err, ErrNotFound))

	updated, err := st.GetVendor(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", updated.PasswordHash)
}

func TestSQLite_RecoveryTokenExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	expired := time.Now().UTC().Add(-1 * time.Minute)
	require.NoError(t, st.SetVendorRecovery(ctx, vendor.ID, "654321", &expired))

	_, err := st.GetVendorByRecoveryToken(ctx, "654321")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_DocumentRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	doc := &model.Document{
		VendorID: vendor.ID,
		Filename: "alvara.pdf",
		Category: "legal",
		MIMEType: "application/pdf",
		Content:  []byte("conteudo"),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("conteudo"), got.Content)
	assert.Equal(t, "application/pdf", got.MIMEType)

	list, err := st.ListDocuments(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Content) // metadata only
}

func TestSQLite_DocumentsMissingContent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	withContent := &model.Document{VendorID: vendor.ID, Filename: "a.pdf", Content: []byte("x")}
	withoutContent := &model.Document{VendorID: vendor.ID, Filename: "b.pdf"}
	require.NoError(t, st.CreateDocument(ctx, withContent))
	require.NoError(t, st.CreateDocument(ctx, withoutContent))

	missing, err := st.ListDocumentsMissingContent(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "b.pdf", missing[0].Filename)

	require.NoError(t, st.SetDocumentContent(ctx, withoutContent.ID, []byte("preenchido"), "application/pdf"))
	missing, err = st.ListDocumentsMissingContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	filled, err := st.GetDocument(ctx, withoutContent.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("preenchido"), filled.Content)
	assert.Equal(t, "application/pdf", filled.MIMEType)
}

func TestSQLite_OverrideUpsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	_, err := st.GetOverride(ctx, vendor.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	scoreValue := 88.5
	override := &model.ManualOverride{VendorID: vendor.ID, Score: &scoreValue, Note: "primeira analise"}
	require.NoError(t, st.UpsertOverride(ctx, override))

	got, err := st.GetOverride(ctx, vendor.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.InDelta(t, 88.5, *got.Score, 1e-9)
	assert.Empty(t, got.Decision)

	// Second upsert replaces the record in place.
	override.Decision = model.StatusApproved
	override.Notified = true
	require.NoError(t, st.UpsertOverride(ctx, override))

	got, err = st.GetOverride(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Decision)
	assert.True(t, got.Notified)
}

func TestSQLite_DeleteVendorCascades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	vendor := createTestVendor(t, st, "Acme", "a@acme.com", "123")

	doc := &model.Document{VendorID: vendor.ID, Filename: "a.pdf", Content: []byte("x")}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NoError(t, st.UpsertOverride(ctx, &model.ManualOverride{VendorID: vendor.ID, Decision: model.StatusRejected}))

	require.NoError(t, st.DeleteVendor(ctx, vendor.ID))

	_, err := st.GetVendor(ctx, vendor.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = st.GetDocument(ctx, doc.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = st.GetOverride(ctx, vendor.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting again reports not found.
	err = st.DeleteVendor(ctx, vendor.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
