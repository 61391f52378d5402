package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/telemetry/internal/config"
	"github.com/JonMunkholm/telemetry/internal/history"
)

// ImportList is the body of GET /api/imports.
type ImportList struct {
	Imports []history.Record `json:"imports"`
	Limit   int              `json:"limit"`
}

// handleListImports returns the most recent import records.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.cfg.Database.HistoryLimit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	recs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}

	writeJSON(w, r, http.StatusOK, ImportList{Imports: recs, Limit: limit})
}

// handleGetImport returns one import record.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		err = fmt.Errorf("%w: %q", errInvalidImportID, raw)
		s.respondError(w, r, err, statusFor(err))
		return
	}

	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, rec)
}

// parseLimit reads the limit query parameter. Unlike most query
// parameters a malformed value is an error rather than the default.
func parseLimit(r *http.Request, defaultVal int) (int, error) {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 || n > config.MaxHistoryLimit {
		return 0, fmt.Errorf("%w: %q", history.ErrInvalidLimit, val)
	}
	return n, nil
}
