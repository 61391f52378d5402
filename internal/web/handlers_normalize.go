package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/telemetry/internal/core"
	"github.com/JonMunkholm/telemetry/internal/history"
	"github.com/JonMunkholm/telemetry/internal/logging"
	"github.com/JonMunkholm/telemetry/internal/metrics"
	"github.com/JonMunkholm/telemetry/internal/vendors"
	"github.com/JonMunkholm/telemetry/internal/web/middleware"
)

const (
	// maxMultipartMemory is how much of a multipart form is kept in memory;
	// larger parts spill to temporary files.
	maxMultipartMemory = 32 << 20

	// multipartOverhead allows for form framing on top of the file itself.
	multipartOverhead = 1 << 20

	defaultFileName = "upload.csv"

	recordTimeout = 5 * time.Second
)

// NormalizeResponse is the JSON body of a successful normalization.
type NormalizeResponse struct {
	ID             string           `json:"id"`
	FileName       string           `json:"file_name"`
	Class          core.Class       `json:"class"`
	ContentType    string           `json:"content_type"`
	Dialect        core.Dialect     `json:"dialect"`
	Shape          core.Shape       `json:"shape"`
	Columns        []core.Column    `json:"columns"`
	Rows           []map[string]any `json:"rows"`
	Diagnostics    core.Diagnostics `json:"diagnostics"`
	CriticalFields []string         `json:"critical_fields,omitempty"`
}

// handleNormalize converts one uploaded file to the canonical table.
//
// The file is the multipart field "file" or the raw request body. Query
// parameters: vendor (repeatable or comma-separated) adds alias profiles on
// top of the configured ones, format=csv returns the table as CSV with the
// counts in response headers, name sets the file name of a raw body.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	id := uuid.New()
	w.Header().Set(middleware.ImportIDHeader, id.String())
	ctx := logging.WithImportID(r.Context(), id.String())
	r = r.WithContext(ctx)

	aliases, err := s.requestAliases(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	class := core.Classify(name, data)
	log := logging.WithFields(ctx, "file", name, "class", string(class), "bytes", len(data))
	if class.Noise() {
		err := fmt.Errorf("%s: %w", name, class.Err())
		s.finish(ctx, id, name, class, nil, err, 0)
		log.Info("file skipped")
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	done := s.metrics.Started()
	start := s.now()
	res, err := core.Normalize(data, core.Options{
		Encodings:   s.cfg.Ingest.Encodings,
		SampleLines: s.cfg.Ingest.SampleLines,
		Aliases:     aliases,
		Logger:      log,
	})
	elapsed := s.now().Sub(start)
	done()
	s.limiter.Release()

	if err != nil {
		err = fmt.Errorf("normalize %s: %w", name, err)
		s.finish(ctx, id, name, class, nil, err, elapsed)
		s.respondError(w, r, err, statusFor(err))
		return
	}

	critical := res.Diagnostics.Critical(s.cfg.Ingest.CriticalFailureRate)
	for _, field := range critical {
		res.Diagnostics.Warnings = append(res.Diagnostics.Warnings,
			fmt.Sprintf("column %s: %.1f%% of values could not be parsed", field, res.Diagnostics.FailureRate(field)*100))
	}
	s.finish(ctx, id, name, class, res, nil, elapsed)

	log.Info("file normalized",
		"delimiter", res.Dialect.DelimiterName(),
		"encoding", res.Dialect.Encoding,
		"rows", res.Diagnostics.RowsOutput,
		"dropped", res.Diagnostics.RowsDropped,
		"coercion_failures", res.Diagnostics.TotalCoercionFailures(),
		"duration_ms", elapsed.Milliseconds(),
	)

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		s.writeTableCSV(w, r, name, res)
		return
	}

	writeJSON(w, r, http.StatusOK, NormalizeResponse{
		ID:             id.String(),
		FileName:       name,
		Class:          class,
		ContentType:    core.DetectMIME(data),
		Dialect:        res.Dialect,
		Shape:          res.Table.Shape,
		Columns:        res.Table.Columns,
		Rows:           res.Table.Records(),
		Diagnostics:    res.Diagnostics,
		CriticalFields: critical,
	})
}

// writeTableCSV streams the canonical CSV. Diagnostics travel in headers.
func (s *Server) writeTableCSV(w http.ResponseWriter, r *http.Request, name string, res *core.Result) {
	d := res.Diagnostics
	h := w.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, normalizedName(name)))
	h.Set("X-Coercion-Failures", strconv.Itoa(d.TotalCoercionFailures()))
	h.Set("X-Rows-Dropped", strconv.Itoa(d.RowsDropped))
	h.Set("X-Quality-Score", strconv.FormatFloat(d.QualityScore, 'f', 1, 64))
	w.WriteHeader(http.StatusOK)

	if err := res.Table.WriteCSV(w); err != nil {
		loggerFor(r).Error("csv write error", "error", err)
	}
}

// normalizedName turns "Race 1.txt" into "Race 1_normalized.csv".
func normalizedName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "upload"
	}
	return base + "_normalized.csv"
}

// requestAliases extends the server table with the vendor query parameter.
func (s *Server) requestAliases(r *http.Request) (*core.AliasTable, error) {
	var names []string
	for _, v := range r.URL.Query()["vendor"] {
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return s.aliases, nil
	}
	return vendors.Apply(s.aliases, names...)
}

// readUpload returns the file name and content of the request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	var (
		src  io.Reader
		name string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			if isMaxBytes(err) {
				return "", nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
			}
			return "", nil, fmt.Errorf("%w: %v", errNoFile, err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", errNoFile, err)
		}
		defer file.Close()
		src, name = file, header.Filename
	} else {
		src, name = r.Body, r.URL.Query().Get("name")
	}
	if name == "" {
		name = defaultFileName
	}

	data, err := io.ReadAll(core.NewSizeLimitReader(src, maxSize))
	if err != nil {
		if isMaxBytes(err) || errors.Is(err, core.ErrFileTooLarge) {
			return "", nil, fmt.Errorf("%s: %w: limit is %d bytes", name, core.ErrFileTooLarge, maxSize)
		}
		return "", nil, fmt.Errorf("read %s: %w", name, err)
	}
	return name, data, nil
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// finish records the outcome of one file in metrics and history. History
// failures are logged and never fail the request.
func (s *Server) finish(ctx context.Context, id uuid.UUID, name string, class core.Class, res *core.Result, err error, elapsed time.Duration) {
	s.metrics.ObserveImport(metrics.Observation{
		Class:    class,
		Outcome:  core.OutcomeOf(class, err),
		Duration: elapsed,
		Result:   res,
	})

	rec, recErr := history.NewRecord(id, name, class, res, err, s.now())
	if recErr == nil {
		// The client may already be gone; the record is still wanted.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		recErr = s.history.Record(rctx, rec)
	}
	if recErr != nil {
		logging.FromContext(ctx).Warn("import history not recorded", "error", recErr)
	}
}
