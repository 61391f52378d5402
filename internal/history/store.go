// Package history keeps a record of every file the service has seen in
// PostgreSQL. One row per file: its classification, outcome, dialect,
// counts and the full diagnostics document.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/telemetry/internal/core"
)

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("import not found")

	// ErrDisabled is returned when no database is configured.
	ErrDisabled = errors.New("history disabled")

	// ErrInvalidLimit is returned by List for a non-positive limit.
	ErrInvalidLimit = errors.New("invalid limit")
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Recorder is what the HTTP layer needs from a history store.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS telemetry_imports (
    id                uuid PRIMARY KEY,
    file_name         text NOT NULL,
    class             text NOT NULL,
    outcome           text NOT NULL,
    delimiter         text NOT NULL DEFAULT '',
    encoding          text NOT NULL DEFAULT '',
    rows_read         integer NOT NULL DEFAULT 0,
    rows_dropped      integer NOT NULL DEFAULT 0,
    columns_mapped    integer NOT NULL DEFAULT 0,
    columns_unmapped  integer NOT NULL DEFAULT 0,
    coercion_failures integer NOT NULL DEFAULT 0,
    diagnostics       jsonb,
    error             text NOT NULL DEFAULT '',
    created_at        timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS telemetry_imports_created_at_idx
    ON telemetry_imports (created_at DESC);`

const insertSQL = `
INSERT INTO telemetry_imports (
    id, file_name, class, outcome, delimiter, encoding,
    rows_read, rows_dropped, columns_mapped, columns_unmapped,
    coercion_failures, diagnostics, error, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const selectColumns = `
SELECT id, file_name, class, outcome, delimiter, encoding,
       rows_read, rows_dropped, columns_mapped, columns_unmapped,
       coercion_failures, diagnostics, error, created_at
FROM telemetry_imports`

// Store persists import records.
type Store struct {
	db DBTX
}

// NewStore returns a store backed by db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and index if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

// Record inserts one import record.
func (s *Store) Record(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, insertSQL,
		rec.ID,
		rec.FileName,
		string(rec.Class),
		string(rec.Outcome),
		rec.Delimiter,
		rec.Encoding,
		rec.RowsRead,
		rec.RowsDropped,
		rec.ColumnsMapped,
		rec.ColumnsUnmapped,
		rec.CoercionFailures,
		[]byte(rec.Diagnostics),
		rec.Error,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record import %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.Query(ctx, selectColumns+" ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return out, nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, selectColumns+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get import %s: %w", id, err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec            Record
		class, outcome string
		diagnostics    []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.FileName,
		&class,
		&outcome,
		&rec.Delimiter,
		&rec.Encoding,
		&rec.RowsRead,
		&rec.RowsDropped,
		&rec.ColumnsMapped,
		&rec.ColumnsUnmapped,
		&rec.CoercionFailures,
		&diagnostics,
		&rec.Error,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Class = core.Class(class)
	rec.Outcome = core.Outcome(outcome)
	rec.Diagnostics = diagnostics
	return rec, nil
}

// Disabled is the Recorder used when no database is configured. Record
// is a no-op so normalization keeps working; reads report ErrDisabled.
type Disabled struct{}

func (Disabled) Record(context.Context, Record) error { return nil }

func (Disabled) List(context.Context, int) ([]Record, error) { return nil, ErrDisabled }

func (Disabled) Get(context.Context, uuid.UUID) (Record, error) { return Record{}, ErrDisabled }
