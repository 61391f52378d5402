package core

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the table as comma-delimited UTF-8 with a header row.
// Source columns keep their string values; derived columns are written as
// plain decimal seconds, and missing values as empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			if c.Derived {
				rec[i] = FormatNumber(row.Numbers[c.Name])
			} else {
				rec[i] = row.Values[c.Name]
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", row.Line, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Records returns the rows as JSON-ready objects. Numeric and derived
// columns are pgtype.Float8 values, which encode as a number or null; text
// and time columns are strings. Cells a row does not have are omitted.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			switch {
			case c.Derived:
				if _, ok := row.Values[c.Source]; ok {
					rec[c.Name] = row.Numbers[c.Name]
				}
			case c.Kind == KindNumeric:
				if _, ok := row.Values[c.Name]; ok {
					rec[c.Name] = row.Numbers[c.Name]
				}
			default:
				if v, ok := row.Values[c.Name]; ok {
					rec[c.Name] = v
				}
			}
		}
		out[i] = rec
	}
	return out
}

// Float returns a column value as a float and whether it is present and valid.
func (t *Table) Float(row int, col string) (float64, bool) {
	if row < 0 || row >= len(t.Rows) {
		return 0, false
	}
	f := t.Rows[row].Numbers[col]
	return f.Float64, f.Valid
}
