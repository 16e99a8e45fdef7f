package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-portal/internal/model"
)

func score(v float64) *float64 { return &v }

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name         string
		flag         string
		homologation *float64
		qcAverage    *float64
		sheetIQF     *float64
		want         model.Status
	}{
		{"low qc average rejects over S flag", "S", score(90), score(65), score(90), model.StatusRejected},
		{"low sheet iqf rejects", "S", score(90), nil, score(69.9), model.StatusRejected},
		{"low homologation rejects", "S", score(50), nil, nil, model.StatusRejected},
		{"flag N rejects with high scores", "N", score(85), score(85), nil, model.StatusRejected},
		{"flag S approves", "s", score(85), score(85), score(85), model.StatusApproved},
		{"flag S with whitespace", " S ", nil, nil, nil, model.StatusApproved},
		{"blank flag under review", "", score(85), nil, nil, model.StatusUnderReview},
		{"unknown flag under review", "X", nil, score(80), nil, model.StatusUnderReview},
		{"exactly at floor passes", "S", score(70), score(70), score(70), model.StatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineStatus(tt.flag, tt.homologation, tt.qcAverage, tt.sheetIQF)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcile_LowGradeRejectsDespiteApprovedFlag(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme Comercio"}
	hom := []model.HomologationRow{
		{Agent: "ACME COMÉRCIO", Homologation: score(90), IQF: score(95), Approved: "S"},
	}
	qc := []model.QualityControlRow{
		{AgentName: "Acme Comercio", Grade: score(60)},
		{AgentName: "Acme Comercio", Grade: score(90)},
	}

	rec := Reconcile(vendor, nil, hom, qc)
	assert.Equal(t, model.StatusRejected, rec.Status)
	require.NotNil(t, rec.QCAverage)
	assert.InDelta(t, 75.0, *rec.QCAverage, 1e-9)
	assert.Equal(t, 2, rec.QCSampleCount)
	require.NotNil(t, rec.EffectiveScore)
	assert.InDelta(t, 75.0, *rec.EffectiveScore, 1e-9)
}

func TestReconcile_NothingToEvaluate(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Nova Ltda"}
	rec := Reconcile(vendor, nil, nil, nil)
	assert.Equal(t, model.StatusNotYetRegistered, rec.Status)
	assert.Nil(t, rec.EffectiveScore)
	assert.Zero(t, rec.QCSampleCount)
}

func TestReconcile_FlagNDominatesHighScore(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Beta Servicos"}
	hom := []model.HomologationRow{
		{Agent: "Beta Servicos", Homologation: score(85), Approved: "N"},
	}
	rec := Reconcile(vendor, nil, hom, nil)
	assert.Equal(t, model.StatusRejected, rec.Status)
}

func TestReconcile_ManualDecisionWins(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	hom := []model.HomologationRow{{Agent: "Acme", Homologation: score(50), Approved: "N"}}
	override := &model.ManualOverride{VendorID: "v1", Decision: model.StatusApproved}

	rec := Reconcile(vendor, override, hom, nil)
	assert.Equal(t, model.StatusApproved, rec.Status)
	assert.True(t, rec.DecisionOverridden)
}

func TestReconcile_ManualScoreBeatsSheet(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	hom := []model.HomologationRow{{Agent: "Acme", Homologation: score(60), Approved: "S"}}
	override := &model.ManualOverride{VendorID: "v1", Score: score(88)}

	rec := Reconcile(vendor, override, hom, nil)
	require.NotNil(t, rec.HomologationScore)
	assert.InDelta(t, 88.0, *rec.HomologationScore, 1e-9)
	assert.Equal(t, model.StatusApproved, rec.Status)
}

func TestReconcile_TaxIDFallbackMatch(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Razao Social Diferente", TaxID: "12.345.678/0001-90"}
	hom := []model.HomologationRow{
		{Agent: "Nome Na Planilha", TaxID: "12.345.678/0001-90", Homologation: score(80), Approved: "S"},
	}
	rec := Reconcile(vendor, nil, hom, nil)
	assert.Equal(t, "Nome Na Planilha", rec.MatchedAgent)
	assert.Equal(t, model.StatusApproved, rec.Status)
}

func TestReconcile_TradeNameMatch(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Fantasia LTDA"}
	hom := []model.HomologationRow{
		{Agent: "Razao Social SA", TradeName: "Fantasia Ltda", IQF: score(80), Approved: "S"},
	}
	rec := Reconcile(vendor, nil, hom, nil)
	assert.Equal(t, "Razao Social SA", rec.MatchedAgent)
	require.NotNil(t, rec.SheetIQF)
}

func TestReconcile_QCSubstringFallback(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	qc := []model.QualityControlRow{
		{AgentName: "ACME COMERCIO E SERVICOS LTDA", Grade: score(95)},
	}
	rec := Reconcile(vendor, nil, nil, qc)
	require.NotNil(t, rec.QCAverage)
	assert.InDelta(t, 95.0, *rec.QCAverage, 1e-9)
	assert.Equal(t, 1, rec.QCSampleCount)
	assert.Equal(t, model.StatusUnderReview, rec.Status)
}

func TestReconcile_ObservationsFiltered(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	qc := []model.QualityControlRow{
		{AgentName: "Acme", Grade: score(80), Observation: "atraso na entrega"},
		{AgentName: "Acme", Grade: score(90), Observation: "Sem Comentários"},
		{AgentName: "Acme", Grade: score(85), Observation: "  "},
		{AgentName: "Acme", Observation: "embalagem danificada"},
	}
	rec := Reconcile(vendor, nil, nil, qc)
	assert.Equal(t, []string{"atraso na entrega", "embalagem danificada"}, rec.Observations)
	// The row without a coercible grade contributes its observation but not
	// to the average or the sample count.
	assert.Equal(t, 3, rec.QCSampleCount)
	require.NotNil(t, rec.QCAverage)
	assert.InDelta(t, 85.0, *rec.QCAverage, 1e-9)
}

func TestReconcile_ManualReferenceAvoidsDowngrade(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	override := &model.ManualOverride{VendorID: "v1", ReferenceScore: score(75)}

	rec := Reconcile(vendor, override, nil, nil)
	assert.Equal(t, model.StatusUnderReview, rec.Status)
	require.NotNil(t, rec.EffectiveScore)
	assert.InDelta(t, 75.0, *rec.EffectiveScore, 1e-9)
}

func TestReconcile_LowManualReferenceRejects(t *testing.T) {
	vendor := model.Vendor{ID: "v1", Name: "Acme"}
	override := &model.ManualOverride{VendorID: "v1", ReferenceScore: score(40)}

	rec := Reconcile(vendor, override, nil, nil)
	assert.Equal(t, model.StatusRejected, rec.Status)
}
