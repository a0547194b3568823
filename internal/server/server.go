package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/fallback"
	"github.com/nao1215/waypoint/internal/model"
)

// Resolver is the part of the resolver the server needs.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (model.Result, error)
	Classify(raw string) address.Address
	Invalidate(ctx context.Context, raw string)
	ClearCache(ctx context.Context)
	Cache() *cache.Cache
}

// Synthesizer builds fallback pages.
type Synthesizer interface {
	Synthesize(addr address.Address, cause fallback.Cause) model.FallbackPage
}

// ResolveResponse is the body of GET /resolve.
type ResolveResponse struct {
	Result   model.Result        `json:"result"`
	Fallback *model.FallbackPage `json:"fallback,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// CacheResponse is the body of GET /cache.
type CacheResponse struct {
	Stats cache.Stats `json:"stats"`
	Keys  []string    `json:"keys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server holds the handlers.
type Server struct {
	resolver    Resolver
	synthesizer Synthesizer
	metrics     http.Handler
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSynthesizer sets the fallback page synthesizer.
func WithSynthesizer(syn Synthesizer) Option {
	return func(s *Server) {
		if syn != nil {
			s.synthesizer = syn
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler returns the router for resolver.
func NewHandler(resolver Resolver, opts ...Option) http.Handler {
	s := &Server{
		resolver:    resolver,
		synthesizer: fallback.New(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.logRequests, enableCORS)

	r.Get("/healthz", s.health)
	r.Get("/resolve", s.resolve)
	r.Get("/fallback", s.fallbackPage)
	r.Route("/cache", func(r chi.Router) {
		r.Get("/", s.cacheInfo)
		r.Delete("/", s.cacheDelete)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing address parameter"})
		return
	}

	res, err := s.resolver.Resolve(r.Context(), raw)
	if err != nil {
		// The client went away or its deadline passed; the resolution
		// itself keeps running and will be cached.
		s.logger.Debug("resolve abandoned", "address", raw, "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	resp := ResolveResponse{Result: res}
	if !res.Resolved() {
		page := s.synthesizer.Synthesize(res.Address, fallback.Exhausted(res))
		resp.Fallback = &page
		resp.Error = res.Err().Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fallbackPage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing address parameter"})
		return
	}
	page := s.synthesizer.Synthesize(s.resolver.Classify(raw), fallback.RenderBlock(r.URL.Query().Get("reason")))
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) cacheInfo(w http.ResponseWriter, _ *http.Request) {
	c := s.resolver.Cache()
	keys := c.Keys()
	if keys == nil {
		keys = []string{}
	}
	s.writeJSON(w, http.StatusOK, CacheResponse{Stats: c.Stats(), Keys: keys})
}

func (s *Server) cacheDelete(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("address"); raw != "" {
		s.resolver.Invalidate(r.Context(), raw)
	} else {
		s.resolver.ClearCache(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// enableCORS lets browser front ends call the API from any origin.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
		return srv.Close()
	}
	return nil
}
