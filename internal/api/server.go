package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/scheduler"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SnapshotSource hands out the most recent settled snapshot.
type SnapshotSource interface {
	Latest() *simulation.Snapshot
}

// PriceHistory is the read side of the archive. Nil when the archive is
// disabled.
type PriceHistory interface {
	GetByDay(ctx context.Context, day string) ([]models.PricePoint, error)
	GetAvailableDays(ctx context.Context) ([]string, error)
	GetLatest(ctx context.Context) (*models.PricePoint, error)
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string

	// Optional collaborators.
	Hub       http.Handler
	History   PriceHistory
	Scheduler interface{ Stats() scheduler.Stats }
	DBStatus  func(ctx context.Context) string
}

type Server struct {
	source     SnapshotSource
	hub        http.Handler
	history    PriceHistory
	sched      interface{ Stats() scheduler.Stats }
	dbStatus   func(ctx context.Context) string
	httpServer *http.Server
	apiKey     string
}

func NewServer(source SnapshotSource, opts Options) *Server {
	s := &Server{
		source:   source,
		hub:      opts.Hub,
		history:  opts.History,
		sched:    opts.Scheduler,
		dbStatus: opts.DBStatus,
		apiKey:   opts.APIKey,
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     s.authMiddleware(corsMiddleware(s.routes(), opts.CORSOrigin)),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket connections.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Fleet routes
	mux.HandleFunc("GET /api/market-data", s.handleMarketData)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/devices/{id}", s.handleDevice)
	mux.HandleFunc("GET /api/operations", s.handleOperations)
	mux.HandleFunc("GET /api/energy-contracts", s.handleEnergyContracts)

	// Insight routes
	mux.HandleFunc("GET /api/ai-insights", s.handleInsights)
	mux.HandleFunc("GET /api/ai-predictions", s.handlePredictions)

	// Archive routes
	if s.history != nil {
		mux.HandleFunc("GET /api/history/prices/latest", s.handleLatestPrice)
		mux.HandleFunc("GET /api/history/prices/days", s.handleAvailableDays)
		mux.HandleFunc("GET /api/history/prices/day/{date}", s.handlePricesByDay)
	}

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.hub != nil {
		fmt.Printf("[API] Live updates: ws://localhost%s/ws\n", s.httpServer.Addr)
	}
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		// Browsers cannot set headers on a websocket handshake.
		if r.URL.Path == "/ws" && r.URL.Query().Get("token") == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
