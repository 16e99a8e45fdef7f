package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/store"
)

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := e.auth.Issue("qualidade@example.com", roleAdmin)
	require.NoError(t, err)
	return token
}

func (e *testEnv) writeHomologationSheets(t *testing.T) {
	t.Helper()
	writeSheet(t, e.sheetDir, "fornecedores_homologados.xlsx", [][]string{
		{"Codigo", "Agente", "CNPJ", "Nota Homologacao", "IQF", "Aprovado"},
		{"7", "ACME LTDA", "111", "85", "90", "S"},
		{"8", "BETA SERVICOS", "222", "60", "88", "S"},
	})
	writeSheet(t, e.sheetDir, "controle_qualidade.xlsx", [][]string{
		{"Nome Agente", "Nota", "Observacao"},
		{"ACME LTDA", "80", "Sem comentários"},
		{"ACME LTDA", "90", "Atraso na entrega"},
	})
}

func TestCategories_MissingRoster(t *testing.T) {
	env := newTestEnv(t)
	res := env.request(t, http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "roster spreadsheet not found", decodeMap(t, res)["message"])
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	writeSheet(t, env.sheetDir, "claf.xlsx", [][]string{
		{"MATERIAL / SERVICO", "REQUISITOS LEGAIS", "REQUISITOS ESTABELECIDOS PELA ENGEMAN"},
		{"Material Elétrico", "Alvará de Funcionamento", "Laudo Técnico"},
		{"Serviços de Manutenção", "Certificado CA", ""},
		{"MATERIAL/SERVICO", "", ""},
	})

	res := env.request(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, []any{"Material Elétrico", "Serviços de Manutenção"}, body["categories"])
}

func TestRequiredDocuments(t *testing.T) {
	env := newTestEnv(t)
	writeSheet(t, env.sheetDir, "claf.xlsx", [][]string{
		{"MATERIAL / SERVICO", "REQUISITOS LEGAIS", "REQUISITOS ESTABELECIDOS PELA ENGEMAN"},
		{"Material Elétrico", "Alvará de Funcionamento", "Laudo Técnico"},
	})

	res := env.request(t, http.MethodPost, "/api/required-documents", "", map[string]string{
		"category": "material eletrico",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, []any{"Alvará de Funcionamento", "Laudo Técnico"}, body["documents"])
}

func TestRequiredDocuments_MissingCategory(t *testing.T) {
	env := newTestEnv(t)
	res := env.request(t, http.MethodPost, "/api/required-documents", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestHomologationLookup_MissingSheets(t *testing.T) {
	env := newTestEnv(t)
	res := env.request(t, http.MethodGet, "/api/homologation?vendor_name=acme", "", nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "one or more spreadsheet files were not found", decodeMap(t, res)["message"])
}

func TestHomologationLookup(t *testing.T) {
	env := newTestEnv(t)
	env.writeHomologationSheets(t)

	res := env.request(t, http.MethodGet, "/api/homologation?vendor_name=acme", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, "ACME LTDA", body["name"])
	assert.Equal(t, string(model.StatusApproved), body["status"])
	assert.Equal(t, float64(85), body["effective_score"]) // qc average (80+90)/2
	assert.Equal(t, "S", body["approved"])
	assert.Equal(t, []any{"Atraso na entrega"}, body["occurrences"])
	assert.Equal(t, float64(2), body["qc_sample_count"])
}

func TestHomologationLookup_LowScoreRejects(t *testing.T) {
	env := newTestEnv(t)
	env.writeHomologationSheets(t)

	res := env.request(t, http.MethodGet, "/api/homologation?vendor_name=beta", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, string(model.StatusRejected), body["status"])
}

func TestHomologationLookup_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.writeHomologationSheets(t)

	res := env.request(t, http.MethodGet, "/api/homologation?vendor_name=nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.writeHomologationSheets(t)
	acme := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")
	env.seedVendor(t, "Novo Fornecedor", "novo@example.com", "333", "pw")

	doc := model.Document{VendorID: acme.ID, Filename: "doc.pdf", Category: "Material", Content: []byte("x")}
	require.NoError(t, env.store.CreateDocument(context.Background(), &doc))

	res := env.request(t, http.MethodGet, "/api/admin/dashboard", env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, float64(2), body["total_registered"])
	assert.Equal(t, float64(1), body["total_approved"])
	// The unmatched vendor counts as under review (not yet registered).
	assert.Equal(t, float64(1), body["total_under_review"])
	assert.Equal(t, float64(0), body["total_rejected"])
	assert.Equal(t, float64(1), body["total_documents"])
}

func TestAdminVendors_Search(t *testing.T) {
	env := newTestEnv(t)
	env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")
	env.seedVendor(t, "Beta Servicos", "beta@example.com", "222", "pw")

	res := env.request(t, http.MethodGet, "/api/admin/vendors?search=acme", env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	list := decodeList(t, res)
	require.Len(t, list, 1)
	record := list[0].(map[string]any)
	assert.Equal(t, "ACME LTDA", record["name"])
	assert.Equal(t, string(model.StatusNotYetRegistered), record["status"])
}

func TestAdminScore_CommaDecimal(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")

	res := env.request(t, http.MethodPatch, "/api/admin/vendors/"+vendor.ID+"/score",
		env.adminToken(t), map[string]any{"homologation_score": "92,5"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	record := body["vendor"].(map[string]any)
	assert.Equal(t, 92.5, record["homologation_score"])

	override, err := env.store.GetOverride(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.NotNil(t, override.Score)
	assert.Equal(t, 92.5, *override.Score)
}

func TestAdminScore_Invalid(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")

	res := env.request(t, http.MethodPatch, "/api/admin/vendors/"+vendor.ID+"/score",
		env.adminToken(t), map[string]any{"homologation_score": "abc"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestAdminDecision_OverridesComputedStatus(t *testing.T) {
	env := newTestEnv(t)
	env.writeHomologationSheets(t)
	// BETA's 60 homologation score would reject it.
	beta := env.seedVendor(t, "BETA SERVICOS", "beta@example.com", "222", "pw")

	res := env.request(t, http.MethodPost, "/api/admin/vendors/"+beta.ID+"/decision",
		env.adminToken(t), map[string]any{
			"status":     string(model.StatusApproved),
			"note":       "Aprovado em reavaliação",
			"send_email": false,
		})
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeMap(t, res)
	assert.Equal(t, false, body["email_sent"])
	record := body["vendor"].(map[string]any)
	assert.Equal(t, string(model.StatusApproved), record["status"])
	assert.Equal(t, "Aprovado em reavaliação", record["manual_note"])

	// The vendor-facing view reflects the override too.
	token, err := env.auth.Issue(beta.ID, "")
	require.NoError(t, err)
	res = env.request(t, http.MethodGet, "/api/portal/summary", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	summary := decodeMap(t, res)["summary"].(map[string]any)
	assert.Equal(t, string(model.StatusApproved), summary["status"])
}

func TestAdminDecision_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")

	res := env.request(t, http.MethodPost, "/api/admin/vendors/"+vendor.ID+"/decision",
		env.adminToken(t), map[string]any{"status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestAdminDeleteVendor(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")

	res := env.uploadFile(t, vendor.ID, "Material", "doc.pdf", []byte("content"))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
	vendorDir := filepath.Join(env.uploadDir, vendor.ID)
	_, err := os.Stat(vendorDir)
	require.NoError(t, err)

	res = env.request(t, http.MethodDelete, "/api/admin/vendors/"+vendor.ID, env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	_, err = env.store.GetVendor(context.Background(), vendor.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = os.Stat(vendorDir)
	assert.True(t, os.IsNotExist(err))
}

func TestAdminDeleteVendor_NotFound(t *testing.T) {
	env := newTestEnv(t)
	res := env.request(t, http.MethodDelete, "/api/admin/vendors/missing", env.adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestAdminNotifications(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")

	doc := model.Document{
		VendorID:   vendor.ID,
		Filename:   "alvara.pdf",
		Category:   "Material",
		Content:    []byte("x"),
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, env.store.CreateDocument(context.Background(), &doc))

	res := env.request(t, http.MethodGet, "/api/admin/notifications", env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	list := decodeList(t, res)
	require.Len(t, list, 2)

	// Upload happened after registration, so it comes first.
	first := list[0].(map[string]any)
	assert.Equal(t, "document", first["type"])
	assert.Equal(t, "ACME LTDA attached alvara.pdf", first["description"])
	second := list[1].(map[string]any)
	assert.Equal(t, "registration", second["type"])
}

func TestAdminNotifications_Limit(t *testing.T) {
	env := newTestEnv(t)
	env.seedVendor(t, "ACME LTDA", "acme@example.com", "111", "pw")
	env.seedVendor(t, "Beta Servicos", "beta@example.com", "222", "pw")

	res := env.request(t, http.MethodGet, "/api/admin/notifications?limit=1", env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeList(t, res), 1)
}
