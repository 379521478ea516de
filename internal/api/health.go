package api

import (
	"net/http"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/scheduler"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Tick      int64          `json:"tick"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database  string           `json:"database"`
	Scheduler *scheduler.Stats `json:"scheduler,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	if s.dbStatus != nil {
		dbStatus = s.dbStatus(r.Context())
	}

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus},
	}
	if snap := s.source.Latest(); snap != nil {
		resp.Tick = snap.Tick
	}
	if s.sched != nil {
		st := s.sched.Stats()
		resp.Services.Scheduler = &st
	}

	writeJSON(w, http.StatusOK, resp)
}
