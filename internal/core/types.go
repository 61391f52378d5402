package core

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FieldKind is the declared value type of a column.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumeric
	KindTime
)

func (k FieldKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// MarshalJSON renders the kind by name.
func (k FieldKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the names MarshalJSON writes. Unknown names are text.
func (k *FieldKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "numeric":
		*k = KindNumeric
	case "time":
		*k = KindTime
	default:
		*k = KindText
	}
	return nil
}

// Canonical field names.
const (
	FieldPosition  = "POSITION"
	FieldNumber    = "NUMBER"
	FieldDriver    = "DRIVER"
	FieldTeam      = "TEAM"
	FieldVehicle   = "VEHICLE"
	FieldLaps      = "LAPS"
	FieldTotalTime = "TOTAL_TIME"
	FieldGapFirst  = "GAP_FIRST"
	FieldFLTime    = "FL_TIME"
	FieldFLKPH     = "FL_KPH"
	FieldStatus    = "STATUS"
)

// Extension fields recognised by the alias table but outside the canonical set.
const (
	FieldLap     = "LAP" // lap index in lap-by-lap exports
	FieldGapPrev = "GAP_PREV"
	FieldS1      = "S1"
	FieldS2      = "S2"
	FieldS3      = "S3"
	FieldElapsed = "ELAPSED"
	FieldPitTime = "PIT_TIME"
	FieldClass   = "CLASS"
)

// SecondsSuffix names the derived numeric sibling of a time column.
const SecondsSuffix = "_SEC"

// FieldSpec declares a known field and how its values are coerced.
type FieldSpec struct {
	Name      string
	Kind      FieldKind
	Canonical bool // part of the fixed canonical enumeration
}

// FieldSpecs lists every field the alias table can resolve to, canonical
// fields first in canonical header order.
var FieldSpecs = []FieldSpec{
	{Name: FieldPosition, Kind: KindNumeric, Canonical: true},
	{Name: FieldNumber, Kind: KindNumeric, Canonical: true},
	{Name: FieldDriver, Kind: KindText, Canonical: true},
	{Name: FieldTeam, Kind: KindText, Canonical: true},
	{Name: FieldVehicle, Kind: KindText, Canonical: true},
	{Name: FieldLaps, Kind: KindNumeric, Canonical: true},
	{Name: FieldTotalTime, Kind: KindTime, Canonical: true},
	{Name: FieldGapFirst, Kind: KindTime, Canonical: true},
	{Name: FieldFLTime, Kind: KindTime, Canonical: true},
	{Name: FieldFLKPH, Kind: KindNumeric, Canonical: true},
	{Name: FieldStatus, Kind: KindText, Canonical: true},

	{Name: FieldLap, Kind: KindNumeric},
	{Name: FieldGapPrev, Kind: KindTime},
	{Name: FieldS1, Kind: KindTime},
	{Name: FieldS2, Kind: KindTime},
	{Name: FieldS3, Kind: KindTime},
	{Name: FieldElapsed, Kind: KindTime},
	{Name: FieldPitTime, Kind: KindTime},
	{Name: FieldClass, Kind: KindText},
}

var fieldIndex = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(FieldSpecs))
	for _, f := range FieldSpecs {
		m[f.Name] = f
	}
	return m
}()

// LookupField returns the definition of a known field name.
func LookupField(name string) (FieldSpec, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}

// CanonicalFields returns the canonical enumeration in header order.
func CanonicalFields() []string {
	var names []string
	for _, f := range FieldSpecs {
		if f.Canonical {
			names = append(names, f.Name)
		}
	}
	return names
}

// Per-lap columns produced by the long-to-wide reshape.
var (
	lapTimeColumn    = regexp.MustCompile(`^LAP_(\d+)_(TIME|S1|S2|S3)$`)
	lapNumericColumn = regexp.MustCompile(`^LAP_(\d+)_KPH$`)
)

// columnKind resolves the coercion kind of an output column.
func columnKind(name, field string) FieldKind {
	if f, ok := LookupField(field); ok {
		return f.Kind
	}
	switch {
	case lapTimeColumn.MatchString(name):
		return KindTime
	case lapNumericColumn.MatchString(name):
		return KindNumeric
	}
	return KindText
}

// Column describes one column of a canonical table.
type Column struct {
	Name    string    `json:"name"`
	Source  string    `json:"source,omitempty"` // source header, or the column a derived value came from
	Field   string    `json:"field,omitempty"`  // resolved known field, empty when passed through
	Kind    FieldKind `json:"kind"`
	Derived bool      `json:"derived,omitempty"`
}

// Row is one entity of a canonical table.
//
// Values holds the string cells of every non-derived column. Numbers holds
// the coerced value of every numeric and derived column; an invalid
// pgtype.Float8 is the missing sentinel.
type Row struct {
	Line    int
	Values  map[string]string
	Numbers map[string]pgtype.Float8
}

// Value returns the string cell for a column.
func (r Row) Value(col string) string {
	return r.Values[col]
}

// Number returns the coerced value for a column, missing when absent.
func (r Row) Number(col string) pgtype.Float8 {
	return r.Numbers[col]
}

// Shape reports whether a table was reshaped from lap-by-lap input.
type Shape string

const (
	ShapeWide    Shape = "wide"
	ShapePivoted Shape = "pivoted"
)

// Table is the canonical result of normalizing one file. It is never
// modified after Normalize returns it.
type Table struct {
	Columns   []Column
	Rows      []Row
	ColumnMap ColumnMap
	Shape     Shape
}

// ColumnNames returns the output column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// DroppedRow records why an input row did not reach the table.
type DroppedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// isEmptyRow returns true if all cells in the row are empty or whitespace.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
