// Package httpapi exposes the analysis pipeline over HTTP: health,
// readiness, and metrics endpoints, an on-demand analysis endpoint, and a
// websocket broadcast of completed runs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AnalysisRunner executes one isolated analysis run for a date range.
type AnalysisRunner interface {
	Analyze(ctx context.Context, start, end time.Time) (*pipeline.Result, error)
}

// Server exposes the HTTP surface of the service.
type Server struct {
	httpServer *http.Server
	runner     AnalysisRunner
	hub        *Hub
	logger     *slog.Logger
}

// NewServer creates an HTTP server with health, readiness, metrics,
// analysis, and websocket routes.
func NewServer(addr string, runner AnalysisRunner, ready ReadinessChecker, hub *Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second, // analysis runs include upstream fetches
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		hub:    hub,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/space-weather", s.handleAnalyze)
	mux.HandleFunc("GET /ws", hub.HandleWS)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// analyzeRequest is the body of POST /api/v1/space-weather.
type analyzeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// analyzeResponse mirrors the exported artifacts: the linked rows plus the
// run summary.
type analyzeResponse struct {
	Data     []domain.LinkedEvent `json:"data"`
	Summary  domain.Summary       `json:"summary"`
	Metadata analyzeMetadata      `json:"metadata"`
}

type analyzeMetadata struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Count     int    `json:"count"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	result, err := s.runner.Analyze(r.Context(), start, end)
	if err != nil {
		s.respondAnalyzeError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(runNotification{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Counts:    result.Summary.EventCounts,
		})
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Data:    result.Linked,
		Summary: result.Summary,
		Metadata: analyzeMetadata{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Count:     len(result.Linked),
		},
	})
}

// respondAnalyzeError maps pipeline errors to status codes: a bad date range
// is the caller's fault, upstream validation/fetch failures are gateway
// errors.
func (s *Server) respondAnalyzeError(w http.ResponseWriter, err error) {
	var dateErr *domain.DateRangeError
	if errors.As(err, &dateErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Error("analysis request failed", "error", err)
	var validationErr *domain.ValidationError
	var fetchErr *domain.FetchError
	if errors.As(err, &validationErr) || errors.As(err, &fetchErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
