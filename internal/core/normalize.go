package core

// normalize.go is the pipeline entry point:
//
//	bytes -> BOM -> encoding -> delimiter -> records -> header
//	      -> column mapping -> optional lap reshape -> coercion -> Result
//
// Every function here is pure. Nothing is cached between calls, so the
// pipeline may run concurrently on independent inputs.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// MaxHeaderSearchRows limits how far down the file the header row may be.
const MaxHeaderSearchRows = 20

// Options control one normalization. The zero value uses the defaults.
type Options struct {
	Encodings   []string     // fallback order, IANA names
	Delimiters  []rune       // candidates in tie-break order
	SampleLines int          // non-empty lines used for delimiter detection
	Aliases     *AliasTable  // header resolution
	Logger      *slog.Logger // nil discards
}

func (o Options) withDefaults() Options {
	if len(o.Encodings) == 0 {
		o.Encodings = DefaultEncodings
	}
	if len(o.Delimiters) == 0 {
		o.Delimiters = DefaultDelimiters
	}
	if o.SampleLines <= 0 {
		o.SampleLines = DefaultSampleLines
	}
	if o.Aliases == nil {
		o.Aliases = DefaultAliasTable()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Result is a normalized table with the dialect it was read in and the
// diagnostics of the run.
type Result struct {
	Table       *Table
	Dialect     Dialect
	Diagnostics Diagnostics
}

// record is one parsed CSV row with its starting line number.
type record struct {
	line   int
	fields []string
}

// Normalize converts raw file bytes into a canonical table.
//
// Row-level problems never fail the call; they are reported in the
// diagnostics. File-level problems return an error wrapping
// ErrUnparseableFile.
func Normalize(data []byte, opts Options) (*Result, error) {
	return NormalizeReader(bytes.NewReader(data), opts)
}

// NormalizeReader is Normalize for an io.Reader. The input is read fully
// into memory; wrap r in a SizeLimitReader to bound it.
func NormalizeReader(r io.Reader, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	br := NewBOMReader(r)
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	dialect, text, err := DetectDialect(data, br.BOM(), opts)
	if err != nil {
		opts.Logger.Debug("dialect detection failed", "error", err)
		return nil, err
	}
	opts.Logger.Debug("dialect detected",
		"delimiter", dialect.DelimiterName(),
		"encoding", dialect.Encoding,
		"bom", dialect.BOM.String(),
	)

	records, malformed, err := readRecords(text, dialect.Delimiter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	res := normalizeRecords(records, malformed, opts)
	res.Dialect = dialect
	return res, nil
}

// NormalizeRecords normalizes rows that were already split into fields.
// The header is line 1 and rows are numbered from line 2. Result.Dialect is
// the zero value.
func NormalizeRecords(header []string, rows [][]string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if len(header) == 0 || isEmptyRow(header) {
		return nil, ErrEmptyFile
	}

	records := make([]record, 0, len(rows)+1)
	records = append(records, record{line: 1, fields: header})
	for i, row := range rows {
		records = append(records, record{line: i + 2, fields: row})
	}
	return normalizeTable(records, 0, nil, opts), nil
}

// readRecords parses the decoded text. Malformed records are skipped and
// returned separately so the rest of the file is still read.
func readRecords(text string, delim rune) ([]record, []DroppedRow, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records []record
	var malformed []DroppedRow
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				malformed = append(malformed, DroppedRow{Line: pe.StartLine, Reason: pe.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
	return records, malformed, nil
}

func normalizeRecords(records []record, malformed []DroppedRow, opts Options) *Result {
	headerIdx := findHeader(records, opts.Aliases)
	res := normalizeTable(records, headerIdx, malformed, opts)
	if headerIdx > 0 {
		res.Diagnostics.warn("skipped %d line(s) above the header", headerIdx)
	}
	return res
}

// headerWidthSample is how many following records a fallback header is
// compared against.
const headerWidthSample = 5

// findHeader returns the index of the header record: the first record within
// MaxHeaderSearchRows with at least two cells that resolve through the alias
// table, else the first with at least two non-empty cells that is at least
// as wide as the data below it. A title line narrower than the data is never
// taken as the header.
func findHeader(records []record, aliases *AliasTable) int {
	limit := min(len(records), MaxHeaderSearchRows)
	firstWide, fitted := -1, -1
	for i := 0; i < limit; i++ {
		nonEmpty, resolved := 0, 0
		for _, cell := range records[i].fields {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, ok := aliases.Resolve(cell); ok {
				resolved++
			}
		}
		if resolved >= 2 {
			return i
		}
		if nonEmpty < 2 {
			continue
		}
		if firstWide < 0 {
			firstWide = i
		}
		if fitted < 0 && len(records[i].fields) >= modalWidth(records[i+1:], headerWidthSample) {
			fitted = i
		}
	}
	switch {
	case fitted >= 0:
		return fitted
	case firstWide >= 0:
		return firstWide
	}
	return 0
}

// modalWidth returns the most common field count among the first n
// non-empty records, preferring the narrower width on ties. It is 0 when
// there are none.
func modalWidth(records []record, n int) int {
	counts := make(map[int]int)
	for _, rec := range records {
		if n == 0 {
			break
		}
		if isEmptyRow(rec.fields) {
			continue
		}
		counts[len(rec.fields)]++
		n--
	}
	width, best := 0, 0
	for w, c := range counts {
		if c > best || (c == best && w < width) {
			width, best = w, c
		}
	}
	return width
}

func normalizeTable(records []record, headerIdx int, malformed []DroppedRow, opts Options) *Result {
	log := opts.Logger
	header := records[headerIdx].fields

	diag := newDiagnostics()
	diag.HeaderLine = records[headerIdx].line

	cm, conflicts := MapColumns(header, opts.Aliases)
	for _, c := range conflicts {
		diag.Conflicts = append(diag.Conflicts, c)
		diag.warn("%s", c.String())
		log.Warn("column mapping conflict", "field", c.Field, "winner", c.Winner, "loser", c.Loser)
	}
	for _, m := range cm {
		if m.Superseded() {
			diag.warn("column %q is recomputed from its time column", m.Source)
		}
	}

	columns := make([]Column, 0, len(cm))
	for _, m := range cm {
		if m.Superseded() {
			continue
		}
		columns = append(columns, Column{
			Name:   m.Output,
			Source: m.Source,
			Field:  m.Field,
			Kind:   columnKind(m.Output, m.Field),
		})
	}

	for _, d := range malformed {
		diag.drop(d)
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for _, rec := range records[headerIdx+1:] {
		diag.RowsRead++
		if isEmptyRow(rec.fields) {
			diag.RowsEmpty++
			continue
		}
		if len(rec.fields) != len(header) {
			diag.RaggedRows++
		}

		values := make(map[string]string, len(columns))
		for _, m := range cm {
			if m.Superseded() {
				continue
			}
			v := ""
			if m.Index < len(rec.fields) {
				v = CleanCell(rec.fields[m.Index])
			}
			values[m.Output] = v
		}
		rows = append(rows, Row{Line: rec.line, Values: values})
	}
	if diag.RaggedRows > 0 {
		diag.warn("%d row(s) have a different number of fields than the header", diag.RaggedRows)
	}

	shape := ShapeWide
	if NeedsReshape(cm) {
		if rs, ok := reshapeLaps(columns, rows); ok {
			log.Debug("reshaping lap rows", "rows", len(rows), "entities", len(rs.rows), "key", rs.key)
			columns, rows = rs.columns, rs.rows
			shape = ShapePivoted
			for _, d := range rs.dropped {
				diag.drop(d)
			}
			for _, w := range rs.warnings {
				diag.warn("%s", w)
			}
		} else {
			diag.warn("lap-indexed rows have no NUMBER or DRIVER column; left in long form")
		}
	}

	columns, rows, failures := coerce(columns, rows)
	for field, n := range failures {
		diag.CoercionFailures[field] += n
	}

	table := &Table{
		Columns:   columns,
		Rows:      rows,
		ColumnMap: cm,
		Shape:     shape,
	}
	diag.finish(table)

	for _, w := range diag.Warnings {
		log.Debug("normalize warning", "warning", w)
	}
	log.Debug("normalized",
		"rows", len(rows),
		"columns", len(columns),
		"mapped", diag.ColumnsMapped,
		"unmapped", diag.ColumnsUnmapped,
		"dropped", diag.RowsDropped,
		"coercion_failures", diag.TotalCoercionFailures(),
		"shape", string(shape),
	)

	return &Result{Table: table, Diagnostics: diag}
}
