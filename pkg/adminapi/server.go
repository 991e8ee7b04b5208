// Copyright 2024-2026 Aiku AI

// Package adminapi serves the relay's health, metrics and statistics over
// HTTP.
package adminapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aiku/fixupx-relay/pkg/relay"
)

// ProvenanceCounter reports how many reposts are tracked.
type ProvenanceCounter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the admin API. Every collaborator is optional.
type Options struct {
	Addr    string
	APIKey  string
	Version string

	Reporter   relay.StatsReporter
	Provenance ProvenanceCounter
	Database   Pinger
	Gatherer   prometheus.Gatherer
}

// Server is the admin HTTP API.
type Server struct {
	log    zerolog.Logger
	opts   Options
	engine *gin.Engine
	server *http.Server
}

// New builds the router. Call Start to begin listening.
func New(log zerolog.Logger, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		log:  log.With().Str("component", "admin_api").Logger(),
		opts: opts,
	}
	s.engine = s.newEngine()
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	if s.opts.APIKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(s.opts.APIKey))
		{
			api.GET("/stats", s.handleStats)
		}
		s.log.Debug().Msg("Admin API endpoints enabled with authentication")
	} else {
		s.log.Debug().Msg("Admin API endpoints disabled (no api_key set)")
	}
	return r
}

// Start listens in the background. Listener errors are logged.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.opts.Addr).Msg("Starting admin API")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Err(err).Msg("Admin API error")
		}
	}()
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request at debug level.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Handled admin request")
	}
}
