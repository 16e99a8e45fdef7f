package sheet

import (
	"strings"

	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/normalize"
)

// Column names as they appear in the external workbooks after header
// normalization. These are fixed by the upstream export, not by us.
const (
	colAgent        = "agente"
	colTradeName    = "nome_fantasia"
	colTaxID        = "cnpj"
	colCode         = "codigo"
	colHomologation = "nota_homologacao"
	colIQF          = "iqf"
	colApproved     = "aprovado"

	colQCAgent       = "nome_agente"
	colQCGrade       = "nota"
	colQCObservation = "observacao"
)

// LoadHomologation imports the homologation roster into typed rows. Rows
// without an agent name are dropped; numeric fields that do not coerce stay
// nil rather than failing the import.
func LoadHomologation(path string) ([]model.HomologationRow, error) {
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return homologationRows(t), nil
}

func homologationRows(t *Table) []model.HomologationRow {
	if t.Empty() {
		return nil
	}
	agent := t.Column(colAgent)
	if agent < 0 {
		return nil
	}
	trade := t.Column(colTradeName)
	taxID := t.Column(colTaxID)
	code := t.Column(colCode)
	homologation := t.Column(colHomologation)
	iqf := t.Column(colIQF)
	approved := t.Column(colApproved)

	var rows []model.HomologationRow
	for i := range t.Rows {
		name := strings.TrimSpace(t.Cell(i, agent))
		if name == "" {
			continue
		}
		row := model.HomologationRow{
			Agent:    name,
			Approved: strings.TrimSpace(t.Cell(i, approved)),
		}
		if trade >= 0 {
			row.TradeName = strings.TrimSpace(t.Cell(i, trade))
		}
		if taxID >= 0 {
			row.TaxID = cleanTaxID(t.Cell(i, taxID))
		}
		if v, ok := normalize.Number(t.Cell(i, code)); ok {
			c := int(v)
			row.Code = &c
		}
		if v, ok := normalize.Number(t.Cell(i, homologation)); ok {
			row.Homologation = &v
		}
		if v, ok := normalize.Number(t.Cell(i, iqf)); ok {
			row.IQF = &v
		}
		rows = append(rows, row)
	}
	return rows
}

// LoadQualityControl imports the monthly quality-control log. A vendor
// normally has many rows (one grade per month); grades that do not coerce
// stay nil and are excluded from averages by the engine.
func LoadQualityControl(path string) ([]model.QualityControlRow, error) {
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return qualityControlRows(t), nil
}

func qualityControlRows(t *Table) []model.QualityControlRow {
	if t.Empty() {
		return nil
	}
	agent := t.Column(colQCAgent)
	if agent < 0 {
		return nil
	}
	grade := t.Column(colQCGrade)
	observation := t.Column(colQCObservation)

	var rows []model.QualityControlRow
	for i := range t.Rows {
		name := strings.TrimSpace(t.Cell(i, agent))
		if name == "" {
			continue
		}
		row := model.QualityControlRow{AgentName: name}
		if v, ok := normalize.Number(t.Cell(i, grade)); ok {
			row.Grade = &v
		}
		if observation >= 0 {
			row.Observation = strings.TrimSpace(t.Cell(i, observation))
		}
		rows = append(rows, row)
	}
	return rows
}

// cleanTaxID strips embedded newlines and surrounding whitespace from a CNPJ
// cell; some exports carry carriage returns inside the value.
func cleanTaxID(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
