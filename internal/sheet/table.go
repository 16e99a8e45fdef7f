// Package sheet is the spreadsheet import boundary. It loads the external
// xlsx workbooks (homologation roster, quality-control log, CLAF requirement
// roster) into validated, typed records so the reconciliation engine never
// touches raw tables.
package sheet

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vendor-portal/internal/normalize"
)

// Table is an in-memory tabular dataset with canonicalized headers.
// Headers are trimmed, lowercased and space→underscore normalized at load
// time; cell values are kept verbatim.
type Table struct {
	Headers []string
	Rows    [][]string
}

// LoadTable reads the first sheet of an xlsx workbook. The first row becomes
// the header row.
func LoadTable(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return &Table{}, nil
	}

	sheet := f.Sheets[0]
	t := &Table{}
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			t.Headers = make([]string, len(cells))
			for j, h := range cells {
				t.Headers[j] = normalize.Header(h)
			}
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// Empty reports whether the table has no columns at all.
func (t *Table) Empty() bool {
	return t == nil || len(t.Headers) == 0
}

// Cell returns the value at (row, col), or "" when the row is ragged and does
// not reach that column.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns the index of the header whose normalized name equals name,
// or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// textualCount counts the non-empty cells in a column. Used by the
// richest-column fallback in ResolveColumns.
func (t *Table) textualCount(col int) int {
	n := 0
	for i := range t.Rows {
		if strings.TrimSpace(t.Cell(i, col)) != "" {
			n++
		}
	}
	return n
}
