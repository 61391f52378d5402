package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/telemetry/internal/core"
)

// Record is one file seen by the service.
type Record struct {
	ID               uuid.UUID       `json:"id"`
	FileName         string          `json:"file_name"`
	Class            core.Class      `json:"class"`
	Outcome          core.Outcome    `json:"outcome"`
	Delimiter        string          `json:"delimiter,omitempty"`
	Encoding         string          `json:"encoding,omitempty"`
	RowsRead         int             `json:"rows_read"`
	RowsDropped      int             `json:"rows_dropped"`
	ColumnsMapped    int             `json:"columns_mapped"`
	ColumnsUnmapped  int             `json:"columns_unmapped"`
	CoercionFailures int             `json:"coercion_failures"`
	Diagnostics      json.RawMessage `json:"diagnostics,omitempty"`
	Error            string          `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewRecord builds the record of one file. res is nil when the file was
// skipped or failed; err is the classification or normalization error.
func NewRecord(id uuid.UUID, fileName string, class core.Class, res *core.Result, err error, now time.Time) (Record, error) {
	rec := Record{
		ID:        id,
		FileName:  fileName,
		Class:     class,
		Outcome:   core.OutcomeOf(class, err),
		CreatedAt: now.UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if res == nil {
		return rec, nil
	}

	d := res.Diagnostics
	if res.Dialect.Delimiter != 0 {
		rec.Delimiter = res.Dialect.DelimiterName()
	}
	rec.Encoding = res.Dialect.Encoding
	rec.RowsRead = d.RowsRead
	rec.RowsDropped = d.RowsDropped
	rec.ColumnsMapped = d.ColumnsMapped
	rec.ColumnsUnmapped = d.ColumnsUnmapped
	rec.CoercionFailures = d.TotalCoercionFailures()

	raw, mErr := json.Marshal(d)
	if mErr != nil {
		return rec, fmt.Errorf("encode diagnostics: %w", mErr)
	}
	rec.Diagnostics = raw
	return rec, nil
}
