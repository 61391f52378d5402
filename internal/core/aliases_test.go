package core

import (
	"errors"
	"testing"
)

func TestFoldHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Lap Time", "LAP_TIME"},
		{" fl_time ", "FL_TIME"},
		{"Best-Lap.Time", "BEST_LAP_TIME"},
		{"Pos.", "POS"},
		{"No.", "NO"},
		{"Gap (1st)", "GAP_1ST"},
		{"__x__", "X"},
		{"Lap#", "LAP"},
		{"Car / No", "CAR_NO"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FoldHeader(tt.input); got != tt.want {
			t.Errorf("FoldHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAliasTable_Resolve(t *testing.T) {
	table := DefaultAliasTable()

	tests := []struct {
		header    string
		wantField string
		wantOK    bool
	}{
		{"Lap Time", FieldFLTime, true},
		{"pos", FieldPosition, true},
		{"Car No.", FieldNumber, true},
		{"total_time", FieldTotalTime, true},
		{"Lap", FieldLap, true},
		{"Laps", FieldLaps, true},
		{"Sector 1", FieldS1, true},
		{"Best Tm", "", false},
		{"FL_TIME_SEC", "", false},
		{"Comment", "", false},
	}

	for _, tt := range tests {
		field, ok := table.Resolve(tt.header)
		if ok != tt.wantOK || field != tt.wantField {
			t.Errorf("Resolve(%q) = %q, %v, want %q, %v", tt.header, field, ok, tt.wantField, tt.wantOK)
		}
	}
}

func TestAliasTable_FieldsResolveToThemselves(t *testing.T) {
	table := DefaultAliasTable()
	for _, f := range FieldSpecs {
		got, ok := table.Resolve(f.Name)
		if !ok || got != f.Name {
			t.Errorf("Resolve(%q) = %q, %v, want itself", f.Name, got, ok)
		}
	}
}

func TestNewAliasTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		aliases []Alias
		wantErr error
	}{
		{
			name:    "same alias for two fields",
			aliases: []Alias{{"X1", FieldDriver}, {"x1", FieldTeam}},
			wantErr: ErrAliasConflict,
		},
		{
			name:    "alias names another field",
			aliases: []Alias{{"Team", FieldDriver}},
			wantErr: ErrAliasConflict,
		},
		{
			name:    "empty alias",
			aliases: []Alias{{"..", FieldDriver}},
			wantErr: ErrAliasConflict,
		},
		{
			name:    "unknown target field",
			aliases: []Alias{{"Y", "NOPE"}},
			wantErr: ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAliasTable(DefaultAliases, tt.aliases)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewAliasTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAliasTable_RepeatSameMapping(t *testing.T) {
	table, err := NewAliasTable([]Alias{{"Pilot", FieldDriver}}, []Alias{{"PILOT", FieldDriver}})
	if err != nil {
		t.Fatalf("NewAliasTable() error = %v", err)
	}
	if got, _ := table.Resolve("pilot"); got != FieldDriver {
		t.Errorf("Resolve(pilot) = %q, want DRIVER", got)
	}
}

func TestAliasTable_Extend(t *testing.T) {
	base := DefaultAliasTable()

	ext, err := base.Extend([]Alias{
		{Name: "Gap", Field: FieldGapPrev},
		{Name: "Best Tm", Field: FieldFLTime},
	})
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}

	if got, _ := ext.Resolve("GAP"); got != FieldGapPrev {
		t.Errorf("extended Resolve(GAP) = %q, want GAP_PREV", got)
	}
	if got, _ := ext.Resolve("Best Tm"); got != FieldFLTime {
		t.Errorf("extended Resolve(Best Tm) = %q, want FL_TIME", got)
	}
	if got, _ := base.Resolve("GAP"); got != FieldGapFirst {
		t.Errorf("base Resolve(GAP) = %q after Extend, want GAP_FIRST", got)
	}
	if ext.Len() != base.Len()+1 {
		t.Errorf("ext.Len() = %d, want %d", ext.Len(), base.Len()+1)
	}
}

func TestAliasTable_ExtendConflicts(t *testing.T) {
	_, err := DefaultAliasTable().Extend([]Alias{
		{Name: "T1", Field: FieldDriver},
		{Name: "t1", Field: FieldTeam},
	})
	if !errors.Is(err, ErrAliasConflict) {
		t.Errorf("Extend() error = %v, want ErrAliasConflict", err)
	}

	_, err = DefaultAliasTable().Extend([]Alias{{Name: "DRIVER", Field: FieldTeam}})
	if !errors.Is(err, ErrAliasConflict) {
		t.Errorf("Extend() reassigning a field name: error = %v, want ErrAliasConflict", err)
	}
}

func TestAliasTable_AliasesSorted(t *testing.T) {
	aliases := DefaultAliasTable().Aliases()
	if len(aliases) != DefaultAliasTable().Len() {
		t.Fatalf("Aliases() returned %d entries, want %d", len(aliases), DefaultAliasTable().Len())
	}
	for i := 1; i < len(aliases); i++ {
		a, b := aliases[i-1], aliases[i]
		if a.Field > b.Field || (a.Field == b.Field && a.Name >= b.Name) {
			t.Fatalf("Aliases() not sorted at %d: %v before %v", i, a, b)
		}
	}
}

func TestAliasTable_ExtendRemovesAlias(t *testing.T) {
	ext, err := DefaultAliasTable().Extend([]Alias{{Name: "Best Lap", Field: ""}})
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if _, ok := ext.Resolve("Best Lap"); ok {
		t.Error("Best Lap should no longer resolve")
	}
	if _, ok := DefaultAliasTable().Resolve("Best Lap"); !ok {
		t.Error("Extend() modified the base table")
	}

	if _, err := DefaultAliasTable().Extend([]Alias{{Name: "FL_TIME", Field: ""}}); !errors.Is(err, ErrAliasConflict) {
		t.Errorf("unmapping a field name: error = %v, want ErrAliasConflict", err)
	}
}
