package core

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestTable_WriteCSV(t *testing.T) {
	res := mustNormalize(t, "POS;DRIVER;TOTAL_TIME\n1;Smith;1:35.5\n2;Jones;\n")

	var buf bytes.Buffer
	if err := res.Table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "POSITION,DRIVER,TOTAL_TIME,TOTAL_TIME_SEC\n" +
		"1,Smith,1:35.5,95.5\n" +
		"2,Jones,,\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestTable_Records(t *testing.T) {
	res := mustNormalize(t, "POS,DRIVER,TOTAL_TIME\n1,Smith,1:35.5\n")

	want := []map[string]any{{
		FieldPosition:    pgtype.Float8{Float64: 1, Valid: true},
		FieldDriver:      "Smith",
		FieldTotalTime:   "1:35.5",
		"TOTAL_TIME_SEC": pgtype.Float8{Float64: 95.5, Valid: true},
	}}
	if got := res.Table.Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %v, want %v", got, want)
	}
}

func TestTable_Float(t *testing.T) {
	res := mustNormalize(t, "POS,DRIVER\n1,Smith\n")

	if v, ok := res.Table.Float(0, FieldPosition); !ok || v != 1 {
		t.Errorf("Float(0, POSITION) = %v, %v", v, ok)
	}
	if _, ok := res.Table.Float(5, FieldPosition); ok {
		t.Error("Float() out of range should report false")
	}
	if _, ok := res.Table.Float(0, FieldDriver); ok {
		t.Error("Float() on text column should report false")
	}
}
