package api

import (
	"net/http"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/operations"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

// snapshot writes 503 and returns nil until the first tick is published.
func (s *Server) snapshot(w http.ResponseWriter) *simulation.Snapshot {
	snap := s.source.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation not started")
	}
	return snap
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, snap.Market)
	}
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, snap.Portfolio)
	}
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	q := r.URL.Query()
	typ, loc := models.DeviceType(q.Get("type")), q.Get("location")

	out := make([]models.Device, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		if typ != "" && d.Type != typ {
			continue
		}
		if loc != "" && d.Location != loc {
			continue
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	d, ok := snap.Device(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ops := snap.Operations
	if limit := parseLimit(r, operations.MaxEntries); len(ops) > limit {
		ops = ops[:limit]
	}
	if ops == nil {
		ops = []models.Operation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) handleEnergyContracts(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, snap.Bundle().Contracts)
	}
}
