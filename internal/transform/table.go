package transform

import (
	"encoding/csv"
	"io"
)

// Table is an ordered set of rows produced by the transform: a header plus
// one row per hour of the target day. Values are kept as strings so numeric
// literals from the source pass through to the CSV unchanged.
type Table struct {
	Columns []string
	Rows    [][]string
}

// RowCount returns the number of data rows (excluding the header).
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// WriteCSV writes the table as CSV: header row first, then one line per
// row, columns in the table's fixed order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
