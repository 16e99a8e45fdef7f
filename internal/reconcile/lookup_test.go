package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-portal/internal/model"
)

func lookupFixture() ([]model.HomologationRow, []model.QualityControlRow) {
	hom := []model.HomologationRow{
		{Agent: "ACME LTDA", Code: intPtr(101), Homologation: score(85), IQF: score(90), Approved: "s"},
		{Agent: "BETA SERVIÇOS", Code: intPtr(102), Homologation: score(60), IQF: score(88), Approved: "S"},
	}
	qc := []model.QualityControlRow{
		{AgentName: "ACME LTDA", Grade: score(80), Observation: "Sem comentários"},
		{AgentName: "ACME LTDA", Grade: score(90), Observation: "Atraso na entrega"},
	}
	return hom, qc
}

func intPtr(v int) *int { return &v }

func TestLookup_MatchesByContainment(t *testing.T) {
	hom, qc := lookupFixture()

	res, ok := Lookup("acme", hom, qc)
	require.True(t, ok)
	assert.Equal(t, "ACME LTDA", res.Agent)
	assert.Equal(t, 101, *res.Code)
	assert.Equal(t, model.StatusApproved, res.Status)
	assert.Equal(t, "S", res.Approved)
	assert.Equal(t, 2, res.SampleCount)
	require.NotNil(t, res.EffectiveScore)
	assert.InDelta(t, 85, *res.EffectiveScore, 0.001)
	assert.Equal(t, []string{"Atraso na entrega"}, res.Observations)
}

func TestLookup_AccentInsensitive(t *testing.T) {
	hom, qc := lookupFixture()

	res, ok := Lookup("beta servicos", hom, qc)
	require.True(t, ok)
	assert.Equal(t, "BETA SERVIÇOS", res.Agent)
}

func TestLookup_LowHomologationRejects(t *testing.T) {
	hom, qc := lookupFixture()

	res, ok := Lookup("beta", hom, qc)
	require.True(t, ok)
	assert.Equal(t, model.StatusRejected, res.Status)
	require.NotNil(t, res.EffectiveScore)
	assert.InDelta(t, 88, *res.EffectiveScore, 0.001)
}

func TestLookup_NoMatch(t *testing.T) {
	hom, qc := lookupFixture()

	_, ok := Lookup("gamma", hom, qc)
	assert.False(t, ok)
}

func TestLookup_EmptyQuery(t *testing.T) {
	hom, qc := lookupFixture()

	_, ok := Lookup("   ", hom, qc)
	assert.False(t, ok)
}
