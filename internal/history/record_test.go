package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/telemetry/internal/core"
)

func TestNewRecord_Normalized(t *testing.T) {
	res, err := core.Normalize([]byte("POS;NO;DRIVER;TOTAL_TIME\n1;7;Ada;1:02.5\n2;9;Bo;??\n"), core.Options{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	id := uuid.New()
	now := time.Date(2024, 5, 12, 16, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	rec, err := NewRecord(id, "results.csv", core.ClassCandidate, res, nil, now)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}

	if rec.Outcome != core.OutcomeNormalized {
		t.Errorf("Outcome = %q, want %q", rec.Outcome, core.OutcomeNormalized)
	}
	if rec.Delimiter != "semicolon" {
		t.Errorf("Delimiter = %q, want semicolon", rec.Delimiter)
	}
	if rec.RowsRead != 2 {
		t.Errorf("RowsRead = %d, want 2", rec.RowsRead)
	}
	if rec.CoercionFailures != 1 {
		t.Errorf("CoercionFailures = %d, want 1", rec.CoercionFailures)
	}
	if rec.CreatedAt.Location() != time.UTC || !rec.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v in UTC", rec.CreatedAt, now)
	}

	var d core.Diagnostics
	if err := json.Unmarshal(rec.Diagnostics, &d); err != nil {
		t.Fatalf("Diagnostics is not JSON: %v", err)
	}
	if d.CoercionFailures[core.FieldTotalTime] != 1 {
		t.Errorf("decoded failures = %v, want TOTAL_TIME: 1", d.CoercionFailures)
	}
}

func TestNewRecord_SkippedAndFailed(t *testing.T) {
	tests := []struct {
		name        string
		class       core.Class
		err         error
		wantOutcome core.Outcome
	}{
		{"metadata skipped", core.ClassMetadata, core.ErrMetadataFile, core.OutcomeSkipped},
		{"empty skipped", core.ClassEmpty, core.ErrEmptyFile, core.OutcomeSkipped},
		{"candidate failed", core.ClassCandidate, core.ErrNoDelimiter, core.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewRecord(uuid.New(), "x.csv", tt.class, nil, tt.err, time.Now())
			if err != nil {
				t.Fatalf("NewRecord() error = %v", err)
			}
			if rec.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", rec.Outcome, tt.wantOutcome)
			}
			if rec.Error != tt.err.Error() {
				t.Errorf("Error = %q, want %q", rec.Error, tt.err.Error())
			}
			if rec.Diagnostics != nil {
				t.Errorf("Diagnostics = %s, want nil", rec.Diagnostics)
			}
		})
	}
}
