package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MissingWarningPercent is the missing-value share above which a column
// gets a warning.
const MissingWarningPercent = 50.0

// profileSampleSize is how many non-empty values value-kind detection reads.
const profileSampleSize = 10

// Diagnostics summarizes what normalization did to one file. It is always
// returned, including for files that otherwise normalized cleanly.
type Diagnostics struct {
	HeaderLine       int             `json:"header_line"`
	ColumnsMapped    int             `json:"columns_mapped"`
	ColumnsUnmapped  int             `json:"columns_unmapped"`
	UnmappedColumns  []string        `json:"unmapped_columns"`
	RowsRead         int             `json:"rows_read"`
	RowsEmpty        int             `json:"rows_empty"`
	RowsDropped      int             `json:"rows_dropped"`
	RowsOutput       int             `json:"rows_output"`
	RaggedRows       int             `json:"ragged_rows"`
	DroppedRows      []DroppedRow    `json:"dropped_rows,omitempty"`
	CoercionFailures map[string]int  `json:"coercion_failures"`
	Conflicts        []Conflict      `json:"conflicts,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Profiles         []ColumnProfile `json:"profiles"`
	QualityScore     float64         `json:"quality_score"`
}

// ColumnProfile describes the values of one output column.
type ColumnProfile struct {
	Name       string    `json:"name"`
	Kind       FieldKind `json:"kind"`
	Detected   string    `json:"detected"` // time, numeric, text or empty
	Present    int       `json:"present"`  // rows that have the cell
	Missing    int       `json:"missing"`  // present cells that are empty or unparseable
	MissingPct float64   `json:"missing_pct"`
	Unique     int       `json:"unique"`
}

func newDiagnostics() Diagnostics {
	return Diagnostics{CoercionFailures: make(map[string]int)}
}

func (d *Diagnostics) warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) drop(row DroppedRow) {
	d.RowsDropped++
	d.DroppedRows = append(d.DroppedRows, row)
}

// TotalCoercionFailures sums failures over all columns.
func (d *Diagnostics) TotalCoercionFailures() int {
	total := 0
	for _, n := range d.CoercionFailures {
		total += n
	}
	return total
}

// Profile returns the profile of an output column.
func (d *Diagnostics) Profile(name string) (ColumnProfile, bool) {
	for _, p := range d.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return ColumnProfile{}, false
}

// FailureRate returns coercion failures of a column as a fraction of the
// rows that have the cell.
func (d *Diagnostics) FailureRate(column string) float64 {
	p, ok := d.Profile(column)
	if !ok || p.Present == 0 {
		return 0
	}
	return float64(d.CoercionFailures[column]) / float64(p.Present)
}

// Critical returns the canonical fields whose failure rate exceeds
// threshold, sorted by name.
func (d *Diagnostics) Critical(threshold float64) []string {
	var out []string
	for col := range d.CoercionFailures {
		f, ok := LookupField(col)
		if !ok || !f.Canonical {
			continue
		}
		if d.FailureRate(col) > threshold {
			out = append(out, col)
		}
	}
	sort.Strings(out)
	return out
}

// finish fills the counts that depend on the final table.
func (d *Diagnostics) finish(t *Table) {
	d.ColumnsMapped = len(t.ColumnMap.Mapped())
	unmapped := t.ColumnMap.Unmapped()
	d.ColumnsUnmapped = len(unmapped)
	d.UnmappedColumns = make([]string, 0, len(unmapped))
	for _, m := range unmapped {
		d.UnmappedColumns = append(d.UnmappedColumns, m.Source)
	}
	d.RowsOutput = len(t.Rows)

	var present, missing int
	d.Profiles = make([]ColumnProfile, 0, len(t.Columns))
	for _, c := range t.Columns {
		p := profileColumn(c, t.Rows)
		d.Profiles = append(d.Profiles, p)
		if !c.Derived && p.Present > 0 && p.MissingPct > MissingWarningPercent {
			d.warn("column %s has %.1f%% missing values", c.Name, p.MissingPct)
		}
		if !c.Derived {
			present += p.Present
			missing += p.Missing
		}
	}
	if present > 0 {
		d.QualityScore = math.Round(float64(present-missing)/float64(present)*1000) / 10
	}
}

func profileColumn(c Column, rows []Row) ColumnProfile {
	p := ColumnProfile{Name: c.Name, Kind: c.Kind}
	seen := make(map[string]bool)
	var sample []string

	for _, row := range rows {
		if c.Derived {
			if _, ok := row.Values[c.Source]; !ok {
				continue
			}
			p.Present++
			f := row.Numbers[c.Name]
			if !f.Valid {
				p.Missing++
				continue
			}
			seen[FormatNumber(f)] = true
			continue
		}

		v, ok := row.Values[c.Name]
		if !ok {
			continue
		}
		p.Present++
		switch {
		case v == "":
			p.Missing++
		case c.Kind == KindNumeric && !row.Numbers[c.Name].Valid:
			p.Missing++
		case c.Kind == KindTime && !row.Numbers[c.Name+SecondsSuffix].Valid:
			p.Missing++
		}
		if v != "" {
			seen[v] = true
			if len(sample) < profileSampleSize {
				sample = append(sample, v)
			}
		}
	}

	p.Unique = len(seen)
	if p.Present > 0 {
		p.MissingPct = math.Round(float64(p.Missing)/float64(p.Present)*1000) / 10
	}
	if c.Derived {
		p.Detected = "numeric"
		if len(seen) == 0 {
			p.Detected = "empty"
		}
	} else {
		p.Detected = detectValueKind(sample)
	}
	return p
}

// detectValueKind classifies a sample: more than half clock-formatted
// values is time, more than half numeric is numeric.
func detectValueKind(sample []string) string {
	if len(sample) == 0 {
		return "empty"
	}
	var clock, numeric int
	for _, v := range sample {
		if strings.ContainsAny(v, ":+") {
			if _, ok := ParseTimeValue(v); ok {
				clock++
				continue
			}
		}
		if ToFloat8(v).Valid {
			numeric++
		}
	}
	switch {
	case clock*2 > len(sample):
		return "time"
	case numeric*2 > len(sample):
		return "numeric"
	}
	return "text"
}
