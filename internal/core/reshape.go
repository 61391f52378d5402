package core

// reshape.go pivots lap-by-lap exports (one row per entity and lap) into one
// row per entity with lap-indexed columns.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// perLapFields become LAP_<n>_<suffix> columns after reshaping.
var perLapFields = []struct {
	field  string
	suffix string
}{
	{FieldFLTime, "TIME"},
	{FieldFLKPH, "KPH"},
	{FieldS1, "S1"},
	{FieldS2, "S2"},
	{FieldS3, "S3"},
}

// lastLapFields take the value of the entity's highest lap.
var lastLapFields = map[string]bool{
	FieldPosition: true,
	FieldGapFirst: true,
	FieldGapPrev:  true,
	FieldElapsed:  true,
	FieldStatus:   true,
}

// NeedsReshape reports whether a column map describes lap-by-lap input: a
// lap index and a lap time without an aggregate total time.
func NeedsReshape(cm ColumnMap) bool {
	return cm.Has(FieldLap) && cm.Has(FieldFLTime) && !cm.Has(FieldTotalTime)
}

type reshapeResult struct {
	key      string
	columns  []Column
	rows     []Row
	dropped  []DroppedRow
	warnings []string
}

type lapEntry struct {
	line   int
	values map[string]string
}

type entity struct {
	key     string
	line    int
	laps    map[int]lapEntry
	first   map[string]string
	varying map[string]bool
}

func (e *entity) sortedLaps() []int {
	laps := make([]int, 0, len(e.laps))
	for n := range e.laps {
		laps = append(laps, n)
	}
	sort.Ints(laps)
	return laps
}

// reshapeLaps returns false when no entity key column exists.
func reshapeLaps(columns []Column, rows []Row) (reshapeResult, bool) {
	byField := make(map[string]Column)
	for _, c := range columns {
		if c.Field != "" {
			byField[c.Field] = c
		}
	}

	keyCol, ok := byField[FieldNumber]
	if !ok {
		keyCol, ok = byField[FieldDriver]
	}
	if !ok {
		return reshapeResult{}, false
	}
	lapCol := byField[FieldLap]

	res := reshapeResult{key: keyCol.Name}

	perLap := make(map[string]bool)
	for _, pf := range perLapFields {
		if c, ok := byField[pf.field]; ok {
			perLap[c.Name] = true
		}
	}

	// Static columns keep their source order. The lap index, the per-lap
	// fields and LAPS (recomputed) are excluded.
	var static []Column
	for _, c := range columns {
		if c.Name == lapCol.Name || perLap[c.Name] || c.Field == FieldLaps {
			continue
		}
		static = append(static, c)
	}

	entities := make(map[string]*entity)
	var order []*entity
	for _, row := range rows {
		key := strings.TrimSpace(row.Values[keyCol.Name])
		if key == "" {
			res.dropped = append(res.dropped, DroppedRow{Line: row.Line, Reason: fmt.Sprintf("missing entity key (%s)", keyCol.Name)})
			continue
		}
		raw := row.Values[lapCol.Name]
		lap, ok := toLapIndex(raw)
		if !ok {
			res.dropped = append(res.dropped, DroppedRow{Line: row.Line, Reason: fmt.Sprintf("invalid lap index %q", raw)})
			continue
		}

		e, ok := entities[key]
		if !ok {
			e = &entity{
				key:     key,
				line:    row.Line,
				laps:    make(map[int]lapEntry),
				first:   make(map[string]string),
				varying: make(map[string]bool),
			}
			entities[key] = e
			order = append(order, e)
		}
		if _, dup := e.laps[lap]; dup {
			res.dropped = append(res.dropped, DroppedRow{Line: row.Line, Reason: fmt.Sprintf("duplicate lap %d for entity %s", lap, key)})
			continue
		}
		e.laps[lap] = lapEntry{line: row.Line, values: row.Values}

		for _, c := range static {
			v := row.Values[c.Name]
			if v == "" {
				continue
			}
			if prev, seen := e.first[c.Name]; !seen {
				e.first[c.Name] = v
			} else if prev != v {
				e.varying[c.Name] = true
			}
		}
	}

	// Unmapped columns that change from lap to lap have no single value
	// per entity and are left out.
	varying := make(map[string]bool)
	for _, e := range order {
		for name := range e.varying {
			varying[name] = true
		}
	}
	var kept []Column
	var left []string
	for _, c := range static {
		if c.Field == "" && varying[c.Name] {
			left = append(left, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	if len(left) > 0 {
		res.warnings = append(res.warnings, fmt.Sprintf("columns vary per lap and were left out of the reshaped table: %s", strings.Join(left, ", ")))
	}

	res.columns = append(res.columns, kept...)
	res.columns = append(res.columns,
		Column{Name: FieldLaps, Field: FieldLaps, Kind: KindNumeric},
		Column{Name: FieldTotalTime, Field: FieldTotalTime, Kind: KindTime},
		Column{Name: FieldFLTime, Source: byField[FieldFLTime].Source, Field: FieldFLTime, Kind: KindTime},
	)
	kphCol, hasKPH := byField[FieldFLKPH]
	if hasKPH {
		res.columns = append(res.columns, Column{Name: FieldFLKPH, Source: kphCol.Source, Field: FieldFLKPH, Kind: KindNumeric})
	}

	lapSet := make(map[int]bool)
	for _, e := range order {
		for n := range e.laps {
			lapSet[n] = true
		}
	}
	allLaps := make([]int, 0, len(lapSet))
	for n := range lapSet {
		allLaps = append(allLaps, n)
	}
	sort.Ints(allLaps)

	for _, n := range allLaps {
		for _, pf := range perLapFields {
			src, ok := byField[pf.field]
			if !ok {
				continue
			}
			name := lapColumnName(n, pf.suffix)
			res.columns = append(res.columns, Column{Name: name, Source: src.Source, Kind: columnKind(name, "")})
		}
	}

	flTime := byField[FieldFLTime].Name
	for _, e := range order {
		laps := e.sortedLaps()
		last := e.laps[laps[len(laps)-1]]

		values := make(map[string]string, len(res.columns))
		for _, c := range kept {
			if lastLapFields[c.Field] {
				values[c.Name] = last.values[c.Name]
				continue
			}
			values[c.Name] = e.first[c.Name]
		}

		var (
			sum      float64
			complete = true
			fastest  = -1
			best     float64
		)
		for _, n := range laps {
			lap := e.laps[n]
			for _, pf := range perLapFields {
				if src, ok := byField[pf.field]; ok {
					values[lapColumnName(n, pf.suffix)] = lap.values[src.Name]
				}
			}

			t, ok := ParseTimeValue(lap.values[flTime])
			if !ok {
				complete = false
				continue
			}
			sum += t
			if fastest < 0 || t < best {
				fastest, best = n, t
			}
		}

		values[FieldLaps] = strconv.Itoa(len(laps))
		values[FieldTotalTime] = ""
		if complete {
			values[FieldTotalTime] = FormatTime(sum)
		}
		values[FieldFLTime] = ""
		if hasKPH {
			values[FieldFLKPH] = ""
		}
		if fastest >= 0 {
			values[FieldFLTime] = e.laps[fastest].values[flTime]
			if hasKPH {
				values[FieldFLKPH] = e.laps[fastest].values[kphCol.Name]
			}
		}

		res.rows = append(res.rows, Row{Line: e.line, Values: values})
	}

	return res, true
}

func lapColumnName(lap int, suffix string) string {
	return "LAP_" + strconv.Itoa(lap) + "_" + suffix
}
