package web

import (
	"net/http"

	"github.com/JonMunkholm/telemetry/internal/core"
	"github.com/JonMunkholm/telemetry/internal/vendors"
)

// VendorList is the body of GET /api/vendors.
type VendorList struct {
	Profiles []vendors.Profile `json:"profiles"`
	Active   []string          `json:"active"` // applied to every request
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	active := s.cfg.Ingest.Vendors
	if active == nil {
		active = []string{}
	}
	writeJSON(w, r, http.StatusOK, VendorList{Profiles: vendors.Profiles(), Active: active})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status         string             `json:"status"`
	History        bool               `json:"history"`
	Normalizations core.LimiterStatus `json:"normalizations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:         "ok",
		History:        s.historyOn,
		Normalizations: s.limiter.Status(),
	})
}
