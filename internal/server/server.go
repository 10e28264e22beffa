// Package server mirrors the TBA API over HTTP from the local cache.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/tba/internal/metrics"
	"github.com/briangreenhill/tba/tba"
)

const RequestIDHeader = "X-Request-ID"

// Fetcher is the part of tba.Client the mirror needs.
type Fetcher interface {
	FetchRaw(ctx context.Context, path string, opts ...tba.FetchOption) (json.RawMessage, error)
}

// Enqueuer schedules background refreshes.
type Enqueuer interface {
	Enqueue(ctx context.Context, paths ...string) (int, error)
}

type Options struct {
	Fetcher  Fetcher
	Enqueuer Enqueuer         // optional; nil disables POST /refresh
	Metrics  *metrics.Metrics // optional; nil disables /metrics
	Log      zerolog.Logger
}

type Server struct {
	Router   *chi.Mux
	fetcher  Fetcher
	enqueuer Enqueuer
	metrics  *metrics.Metrics
}

func New(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(opts.Log))
	r.Use(requestID)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, fetcher: opts.Fetcher, enqueuer: opts.Enqueuer, metrics: opts.Metrics}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check")
		}
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/api/v3/*", s.handleMirror)
	if s.enqueuer != nil {
		r.Post("/refresh/*", s.handleRefresh)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// requestID propagates or assigns a request ID and adds it to the logger
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("req_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleMirror(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")

	var opts []tba.FetchOption
	if flag(r, "force_new") {
		opts = append(opts, tba.ForceNew())
	}
	if flag(r, "force_cache") {
		opts = append(opts, tba.ForceCache())
	}

	body, err := s.fetcher.FetchRaw(r.Context(), path, opts...)
	if err != nil {
		s.writeError(w, r, path, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	n, err := s.enqueuer.Enqueue(r.Context(), path)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("path", path).Msg("enqueue refresh")
		s.writeJSON(w, http.StatusServiceUnavailable, errorBody(err))
		return
	}
	resp, _ := json.Marshal(map[string]any{"path": path, "queued": n > 0})
	s.writeJSON(w, http.StatusAccepted, resp)
}

// statusFor maps fetch failures onto mirror responses
func statusFor(err error) int {
	var statusErr *tba.StatusError
	switch {
	case errors.Is(err, tba.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, tba.ErrParse), errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, tba.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, path string, err error) {
	if errors.Is(err, tba.ErrEmptyResult) {
		s.writeJSON(w, http.StatusOK, json.RawMessage(`[]`))
		return
	}
	status := statusFor(err)
	hlog.FromRequest(r).Warn().Err(err).Str("path", path).Int("status", status).Msg("mirror fetch failed")
	s.writeJSON(w, status, errorBody(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	if s.metrics != nil {
		s.metrics.Served(strconv.Itoa(status))
	}
}

func errorBody(err error) []byte {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return b
}

func flag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
