// Package server exposes the dispatch core over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vinayprograms/relaykit/config"
	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/logging"
)

// Generator runs one generate request. *dispatch.Dispatcher satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Admitter gates requests per client. *ratelimit.Throttle satisfies it.
type Admitter interface {
	Allow(clientKey string) bool
	RetryAfterSeconds() int
}

// PoolStatus reports credential availability. *credentials.Pool satisfies it.
type PoolStatus interface {
	Snapshot() credentials.Snapshot
}

// Server is the relay's HTTP front end.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig

	generator Generator
	throttle  Admitter
	pool      PoolStatus
	log       *logging.Logger

	started time.Time
	nowFunc func() time.Time
}

// New creates a server. Routes are registered immediately; call Start to listen.
func New(cfg config.ServerConfig, generator Generator, throttle Admitter, pool PoolStatus, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(requestLogger(log.WithComponent("http")))
	r.Use(middleware.Recoverer)

	s := &Server{
		router:    r,
		cfg:       cfg,
		generator: generator,
		throttle:  throttle,
		pool:      pool,
		log:       log.WithComponent("server"),
		nowFunc:   time.Now,
	}
	s.started = s.nowFunc()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", RequestID: GetRequestID(req.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed", RequestID: GetRequestID(req.Context())})
	})

	r.Post("/generate", s.handleGenerate)
	r.Get("/health", s.handleHealth)

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until Shutdown. It
// returns nil once Shutdown has been called.
func (s *Server) Start() error {
	s.log.Info("listening", map[string]interface{}{"addr": s.cfg.Addr})

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting_down")
	return s.server.Shutdown(ctx)
}
