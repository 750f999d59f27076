// Package httpapi serves the computed risk bundle as the dashboard JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/risk"
	"github.com/sawpanic/riskbook/internal/telemetry"
)

// BundleSource produces a fresh risk bundle; application.Runner satisfies it.
type BundleSource interface {
	Run(ctx context.Context) (*risk.Bundle, error)
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestTimeout bounds one request end to end, including a cold
	// compute behind /api/metrics.
	RequestTimeout time.Duration
	// ResultTTL is how long a computed bundle is served before the next
	// request triggers a recompute.
	ResultTTL time.Duration
}

// DefaultServerConfig returns local-only defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "127.0.0.1",
		Port:           8000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   120 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 90 * time.Second,
		ResultTTL:      5 * time.Minute,
	}
}

// Server is the read-only dashboard API.
type Server struct {
	router *mux.Router
	server *http.Server
	source BundleSource
	config ServerConfig

	mu        sync.Mutex
	cached    *risk.Bundle
	cachedErr error
	cachedAt  time.Time
}

// NewServer builds the API server around a bundle source.
func NewServer(cfg ServerConfig, source BundleSource) *Server {
	s := &Server{
		router: mux.NewRouter(),
		source: source,
		config: cfg,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	// Prometheus scrape endpoint stays outside the JSON subrouter.
	s.router.Handle("/metrics", telemetry.Handler()).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	// OPTIONS is listed so preflight requests reach the CORS middleware.
	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	api.HandleFunc("/api/status", s.handleStatus).Methods("GET", "OPTIONS")
	api.HandleFunc("/api/metrics", s.handleMetrics).Methods("GET", "OPTIONS")

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		elapsed := time.Since(start)

		requestID, _ := r.Context().Value(ctxKeyRequestID).(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("elapsed", elapsed).
			Str("remote", r.RemoteAddr).
			Msg("http request")

		telemetry.HTTPRequests.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", wrapper.statusCode)).Inc()
		telemetry.HTTPDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())
	})
}

// responseWrapper captures the HTTP status code for the access log.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// bundle returns the cached result while fresh, recomputing otherwise. The
// lock serializes recomputes so a burst of dashboard loads triggers one run.
func (s *Server) bundle(ctx context.Context) (*risk.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cachedAt.IsZero() && time.Since(s.cachedAt) < s.config.ResultTTL {
		return s.cached, s.cachedErr
	}
	b, err := s.source.Run(ctx)
	s.cached, s.cachedErr, s.cachedAt = b, err, time.Now()
	return b, err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"state":   "ready",
		"message": "Ready",
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("metrics computation failed")
		if errors.Is(err, risk.ErrInsufficientData) {
			// The dashboard expects a degraded payload, not a 5xx.
			writeJSON(w, http.StatusOK, emptyMetricsResponse(err))
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, buildMetricsResponse(b))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

// Start begins serving; it blocks until the listener stops.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting http api")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down http api")
	return s.server.Shutdown(ctx)
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.server.Addr
}

// Router exposes the handler tree, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
