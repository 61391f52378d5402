package core

import (
	"fmt"
	"strings"
)

// Mapping records how one source column was resolved.
type Mapping struct {
	Index  int    `json:"index"`  // position in the source header
	Source string `json:"source"` // trimmed source header
	Output string `json:"output"` // output column name, empty when superseded
	Field  string `json:"field,omitempty"`
}

// Superseded reports whether the source column was replaced by a recomputed
// derived column and is absent from the output.
func (m Mapping) Superseded() bool {
	return m.Output == ""
}

// ColumnMap is the ordered resolution of every source column of one file.
type ColumnMap []Mapping

// Has reports whether any source column resolved to field.
func (cm ColumnMap) Has(field string) bool {
	for _, m := range cm {
		if m.Field == field {
			return true
		}
	}
	return false
}

// Output returns the output name of a source header.
func (cm ColumnMap) Output(source string) (string, bool) {
	source = strings.TrimSpace(source)
	for _, m := range cm {
		if m.Source == source && !m.Superseded() {
			return m.Output, true
		}
	}
	return "", false
}

// Mapped returns the entries that resolved to a known field.
func (cm ColumnMap) Mapped() []Mapping {
	var out []Mapping
	for _, m := range cm {
		if m.Field != "" {
			out = append(out, m)
		}
	}
	return out
}

// Unmapped returns the entries passed through unchanged.
func (cm ColumnMap) Unmapped() []Mapping {
	var out []Mapping
	for _, m := range cm {
		if m.Field == "" && !m.Superseded() {
			out = append(out, m)
		}
	}
	return out
}

// Conflict records two source columns resolving to the same field. The later
// column wins; the earlier one keeps its source name.
type Conflict struct {
	Field  string `json:"field"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("columns %q and %q both map to %s; using %q", c.Loser, c.Winner, c.Field, c.Winner)
}

// MapColumns resolves a source header against an alias table.
//
// The result is deterministic for a given header and table. Empty headers
// become COLUMN_<n>, duplicate output names get .1, .2 suffixes, and a
// source column named like the derived seconds column of a mapped time
// field (FL_TIME_SEC next to FL_TIME) is superseded because it is
// recomputed.
func MapColumns(header []string, aliases *AliasTable) (ColumnMap, []Conflict) {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}

	cm := make(ColumnMap, len(header))
	owner := make(map[string]int)
	for i, h := range header {
		src := strings.TrimSpace(h)
		if src == "" {
			src = fmt.Sprintf("COLUMN_%d", i+1)
		}
		cm[i] = Mapping{Index: i, Source: src}
		if field, ok := aliases.Resolve(src); ok {
			cm[i].Field = field
			owner[field] = i
		}
	}

	var conflicts []Conflict
	for i := range cm {
		field := cm[i].Field
		if field == "" {
			continue
		}
		if w := owner[field]; w != i {
			conflicts = append(conflicts, Conflict{Field: field, Winner: cm[w].Source, Loser: cm[i].Source})
			cm[i].Field = ""
		}
	}

	// Reserve canonical names and their derived siblings before naming
	// pass-through columns.
	taken := make(map[string]bool)
	for i := range cm {
		if cm[i].Field == "" {
			continue
		}
		cm[i].Output = cm[i].Field
		taken[cm[i].Field] = true
	}
	derived := make(map[string]bool)
	for i := range cm {
		if cm[i].Field == "" {
			continue
		}
		if columnKind(cm[i].Output, cm[i].Field) == KindTime {
			derived[cm[i].Output+SecondsSuffix] = true
		}
	}
	for i := range cm {
		if cm[i].Field != "" {
			continue
		}
		if columnKind(cm[i].Source, "") == KindTime {
			derived[cm[i].Source+SecondsSuffix] = true
		}
	}

	for i := range cm {
		if cm[i].Field != "" {
			continue
		}
		if derived[FoldHeader(cm[i].Source)] {
			continue // superseded
		}
		name := cm[i].Source
		for n := 1; taken[name] || derived[name]; n++ {
			name = fmt.Sprintf("%s.%d", cm[i].Source, n)
		}
		cm[i].Output = name
		taken[name] = true
	}

	return cm, conflicts
}
