package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeafMist/govsite-search/backend/internal/config"
	"github.com/DeafMist/govsite-search/backend/internal/metrics"
	"github.com/DeafMist/govsite-search/backend/internal/search"
	"github.com/DeafMist/govsite-search/backend/internal/stats"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

// server holds the HTTP handlers. search, stats and health are nil when
// the API runs without a backing store.
type server struct {
	log    *slog.Logger
	cfg    *config.API
	health healthChecker
	search *search.Service
	stats  *stats.Aggregator
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Error   string              `json:"error"`
	Details []search.FieldError `json:"details"`
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	useMiddleware(r, s.log)

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// useMiddleware installs the shared stack. Metrics wrap the recoverer so
// recovered panics are counted as 500s.
func useMiddleware(r chi.Router, log *slog.Logger) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware())
	r.Use(requestLogger(log))
	r.Use(jsonRecoverer(log))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeJSON(w, http.StatusOK, search.NotConfigured())
		return
	}

	params, err := search.ParseParams(r.URL.Query())
	if err != nil {
		var verr *search.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, validationResponse{
				Error:   "Invalid search parameters",
				Details: verr.Fields,
			})
			return
		}
		s.internalError(w, r, "parse search params", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SearchTimeout)
	defer cancel()

	resp, err := s.search.Search(ctx, params)
	if err != nil {
		s.internalError(w, r, "search", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, stats.NotConfigured())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SearchTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.stats.Collect(ctx))
}

func (s *server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.ErrorContext(r.Context(), op+" failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("err", err),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

// jsonRecoverer turns a panic into a JSON 500 instead of a plain-text stack trace.
func jsonRecoverer(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error("panic recovered",
						slog.Any("panic", rvr),
						slog.String("request_id", middleware.GetReqID(r.Context())),
					)
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one debug line per request.
func requestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Debug("http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("latency", time.Since(start)),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
