package core

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// coerce adds a <NAME>_SEC column after every time column and fills Numbers
// for numeric and derived columns. It returns new rows and the per-column
// failure counts, keyed by the source column name.
//
// A cell counts as a failure only when the row has it: an empty cell in a
// present column fails, a lap the entity never ran does not.
func coerce(columns []Column, rows []Row) ([]Column, []Row, map[string]int) {
	out := make([]Column, 0, len(columns)*2)
	for _, c := range columns {
		out = append(out, c)
		if c.Kind == KindTime {
			out = append(out, Column{
				Name:    c.Name + SecondsSuffix,
				Source:  c.Name,
				Kind:    KindNumeric,
				Derived: true,
			})
		}
	}

	failures := make(map[string]int)
	coerced := make([]Row, len(rows))
	for i, row := range rows {
		nums := make(map[string]pgtype.Float8)
		for _, c := range columns {
			v, present := row.Values[c.Name]

			var f pgtype.Float8
			key := c.Name
			switch c.Kind {
			case KindNumeric:
				f = ToFloat8(v)
			case KindTime:
				f = ParseTime(v)
				key = c.Name + SecondsSuffix
			default:
				continue
			}

			nums[key] = f
			if present && !f.Valid {
				failures[c.Name]++
			}
		}
		coerced[i] = Row{Line: row.Line, Values: row.Values, Numbers: nums}
	}

	return out, coerced, failures
}
