package core

import (
	"reflect"
	"testing"
)

func outputs(cm ColumnMap) []string {
	out := make([]string, len(cm))
	for i, m := range cm {
		out[i] = m.Output
	}
	return out
}

func TestMapColumns(t *testing.T) {
	tests := []struct {
		name          string
		header        []string
		wantOutputs   []string
		wantConflicts []Conflict
	}{
		{
			name:        "aliases and pass-through",
			header:      []string{"Pos", "No.", "Driver", "Lap Time", "Comment"},
			wantOutputs: []string{FieldPosition, FieldNumber, FieldDriver, FieldFLTime, "Comment"},
		},
		{
			name:        "later column wins a conflict",
			header:      []string{"Best Lap", "Lap Time"},
			wantOutputs: []string{"Best Lap", FieldFLTime},
			wantConflicts: []Conflict{
				{Field: FieldFLTime, Winner: "Lap Time", Loser: "Best Lap"},
			},
		},
		{
			name:        "conflict loser renamed when its name is taken",
			header:      []string{"POSITION", "Pos"},
			wantOutputs: []string{"POSITION.1", FieldPosition},
			wantConflicts: []Conflict{
				{Field: FieldPosition, Winner: "Pos", Loser: "POSITION"},
			},
		},
		{
			name:        "empty header named by position",
			header:      []string{"POS", " ", "DRIVER"},
			wantOutputs: []string{FieldPosition, "COLUMN_2", FieldDriver},
		},
		{
			name:        "duplicate pass-through names",
			header:      []string{"DRIVER", "Notes", "Notes", "Notes"},
			wantOutputs: []string{FieldDriver, "Notes", "Notes.1", "Notes.2"},
		},
		{
			name:        "stale seconds column superseded",
			header:      []string{"DRIVER", "FL_TIME", "FL_TIME_SEC"},
			wantOutputs: []string{FieldDriver, FieldFLTime, ""},
		},
		{
			name:        "seconds column kept without its time column",
			header:      []string{"DRIVER", "FL_TIME_SEC"},
			wantOutputs: []string{FieldDriver, "FL_TIME_SEC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, conflicts := MapColumns(tt.header, nil)
			if got := outputs(cm); !reflect.DeepEqual(got, tt.wantOutputs) {
				t.Errorf("outputs = %q, want %q", got, tt.wantOutputs)
			}
			if !reflect.DeepEqual(conflicts, tt.wantConflicts) {
				t.Errorf("conflicts = %+v, want %+v", conflicts, tt.wantConflicts)
			}
		})
	}
}

func TestMapColumns_Deterministic(t *testing.T) {
	header := []string{"Pos", "Driver", "Notes", "Lap Time", "Best Lap", "Notes", ""}
	first, c1 := MapColumns(header, nil)
	for i := 0; i < 20; i++ {
		again, c2 := MapColumns(header, nil)
		if !reflect.DeepEqual(first, again) || !reflect.DeepEqual(c1, c2) {
			t.Fatalf("MapColumns is not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestColumnMap_Accessors(t *testing.T) {
	cm, _ := MapColumns([]string{"Pos", "Comment", "FL_TIME", "FL_TIME_SEC"}, nil)

	if !cm.Has(FieldPosition) || cm.Has(FieldDriver) {
		t.Errorf("Has() wrong: POSITION=%v DRIVER=%v", cm.Has(FieldPosition), cm.Has(FieldDriver))
	}
	if got := len(cm.Mapped()); got != 2 {
		t.Errorf("len(Mapped()) = %d, want 2", got)
	}
	unmapped := cm.Unmapped()
	if len(unmapped) != 1 || unmapped[0].Source != "Comment" {
		t.Errorf("Unmapped() = %+v, want only Comment", unmapped)
	}
	if out, ok := cm.Output("Pos"); !ok || out != FieldPosition {
		t.Errorf("Output(Pos) = %q, %v", out, ok)
	}
	if _, ok := cm.Output("FL_TIME_SEC"); ok {
		t.Error("Output(FL_TIME_SEC) should report superseded column as absent")
	}
}
