package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var (
	// ErrAliasConflict is returned when one alias is assigned to two fields.
	ErrAliasConflict = errors.New("alias conflict")

	// ErrUnknownField is returned when an alias targets a field that is not
	// declared in FieldSpecs.
	ErrUnknownField = errors.New("unknown field")
)

// Alias maps one source header spelling to a known field. Names are folded
// with FoldHeader before comparison, so "Lap Time" and "LAP_TIME" are the
// same alias.
type Alias struct {
	Name  string `json:"name"`
	Field string `json:"field"`
}

// DefaultAliases is the built-in alias table. Every known field is also an
// alias of itself; NewAliasTable adds those entries implicitly.
var DefaultAliases = []Alias{
	{"POS", FieldPosition},
	{"PLACE", FieldPosition},
	{"RANK", FieldPosition},
	{"CLASSIFIED_POSITION", FieldPosition},

	{"NO", FieldNumber},
	{"CAR", FieldNumber},
	{"CAR_NO", FieldNumber},
	{"CAR_NUMBER", FieldNumber},
	{"VEHICLE_NUMBER", FieldNumber},
	{"VEHICLE_ID", FieldNumber},
	{"START_NUMBER", FieldNumber},

	{"DRIVER_NAME", FieldDriver},
	{"DRIVERS", FieldDriver},
	{"NAME", FieldDriver},
	{"PILOT", FieldDriver},

	{"TEAM_NAME", FieldTeam},
	{"ENTRANT", FieldTeam},

	{"CAR_MODEL", FieldVehicle},
	{"VEHICLE_MODEL", FieldVehicle},
	{"MODEL", FieldVehicle},

	{"LAP_COUNT", FieldLaps},
	{"TOTAL_LAPS", FieldLaps},
	{"LAPS_COMPLETED", FieldLaps},

	{"RACE_TIME", FieldTotalTime},
	{"ELAPSED_TIME", FieldTotalTime},

	{"GAP", FieldGapFirst},
	{"GAP_TO_FIRST", FieldGapFirst},
	{"GAP_TO_LEADER", FieldGapFirst},
	{"GAP_1ST", FieldGapFirst},

	{"LAP_TIME", FieldFLTime},
	{"BEST_LAP", FieldFLTime},
	{"BEST_LAP_TIME", FieldFLTime},
	{"FASTEST_LAP", FieldFLTime},
	{"FASTEST_LAP_TIME", FieldFLTime},

	{"KPH", FieldFLKPH},
	{"FL_SPEED", FieldFLKPH},
	{"BEST_LAP_KPH", FieldFLKPH},
	{"LAP_KPH", FieldFLKPH},

	{"STATE", FieldStatus},
	{"RESULT", FieldStatus},

	{"LAP_NUMBER", FieldLap},
	{"LAP_NO", FieldLap},
	{"LAP_INDEX", FieldLap},
	{"LAPNUM", FieldLap},

	{"DIFF", FieldGapPrev},
	{"DIFF_PREV", FieldGapPrev},
	{"GAP_PREVIOUS", FieldGapPrev},
	{"INTERVAL", FieldGapPrev},

	{"SECTOR_1", FieldS1},
	{"SECTOR_2", FieldS2},
	{"SECTOR_3", FieldS3},

	{"PIT", FieldPitTime},
	{"PIT_STOP_TIME", FieldPitTime},

	{"CATEGORY", FieldClass},
}

// AliasTable resolves source headers to known fields. A table is immutable;
// Extend returns a new table.
type AliasTable struct {
	byName map[string]string
}

// NewAliasTable builds a table from one or more alias sets. The same folded
// alias may not be assigned to two different fields across all sets.
func NewAliasTable(sets ...[]Alias) (*AliasTable, error) {
	t := &AliasTable{byName: make(map[string]string)}
	for _, f := range FieldSpecs {
		t.byName[f.Name] = f.Name
	}

	for _, set := range sets {
		for _, a := range set {
			if err := t.add(a, false); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// MustAliasTable is NewAliasTable that panics on error.
// Use it only for tables declared in source code.
func MustAliasTable(sets ...[]Alias) *AliasTable {
	t, err := NewAliasTable(sets...)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultAliasTable = MustAliasTable(DefaultAliases)

// DefaultAliasTable returns the table built from DefaultAliases.
func DefaultAliasTable() *AliasTable {
	return defaultAliasTable
}

// Extend returns a copy of t with overrides applied. An override may
// reassign an alias already in t, but overrides may not conflict with each
// other, and a field name always resolves to itself. An override with an
// empty Field removes the alias, so the header passes through unmapped.
func (t *AliasTable) Extend(overrides []Alias) (*AliasTable, error) {
	next := &AliasTable{byName: make(map[string]string, len(t.byName)+len(overrides))}
	for k, v := range t.byName {
		next.byName[k] = v
	}

	seen := make(map[string]string, len(overrides))
	for _, a := range overrides {
		key := FoldHeader(a.Name)
		if prev, ok := seen[key]; ok && prev != a.Field {
			return nil, fmt.Errorf("%w: %q maps to both %s and %s", ErrAliasConflict, a.Name, prev, a.Field)
		}
		seen[key] = a.Field
		if a.Field == "" {
			if err := next.remove(key); err != nil {
				return nil, err
			}
			continue
		}
		if err := next.add(a, true); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (t *AliasTable) add(a Alias, override bool) error {
	if _, ok := LookupField(a.Field); !ok {
		return fmt.Errorf("%w: alias %q targets %q", ErrUnknownField, a.Name, a.Field)
	}
	key := FoldHeader(a.Name)
	if key == "" {
		return fmt.Errorf("%w: empty alias for %s", ErrAliasConflict, a.Field)
	}
	if _, isField := LookupField(key); isField && key != a.Field {
		return fmt.Errorf("%w: %q is the name of field %s", ErrAliasConflict, a.Name, key)
	}
	if existing, ok := t.byName[key]; ok && existing != a.Field && !override {
		return fmt.Errorf("%w: %q maps to both %s and %s", ErrAliasConflict, a.Name, existing, a.Field)
	}
	t.byName[key] = a.Field
	return nil
}

func (t *AliasTable) remove(key string) error {
	if _, isField := LookupField(key); isField {
		return fmt.Errorf("%w: field %s cannot be unmapped", ErrAliasConflict, key)
	}
	delete(t.byName, key)
	return nil
}

// Resolve returns the field a header maps to.
func (t *AliasTable) Resolve(header string) (string, bool) {
	field, ok := t.byName[FoldHeader(header)]
	return field, ok
}

// Len returns the number of aliases, including field self-aliases.
func (t *AliasTable) Len() int {
	return len(t.byName)
}

// Aliases returns the table contents sorted by field, then alias.
func (t *AliasTable) Aliases() []Alias {
	out := make([]Alias, 0, len(t.byName))
	for name, field := range t.byName {
		out = append(out, Alias{Name: name, Field: field})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FoldHeader normalizes a header for alias lookup: trimmed, uppercased,
// runs of spaces, hyphens, dots and slashes collapsed to one underscore, and
// other punctuation dropped.
func FoldHeader(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))

	var b strings.Builder
	b.Grow(len(h))
	sep := false
	for _, r := range h {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/' || r == '\t':
			sep = true
		}
	}
	return b.String()
}
