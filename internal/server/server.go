// Package server hosts viewer sessions over HTTP.
//
// A session owns one reconciliation engine. Clients create a session from a
// dataset (inline or by source location), then drive it with the same
// interactions a browser host would forward: node clicks, modifier clicks,
// configuration changes, viewport transforms and bulk collapse. Every
// interaction answers with a summary of the pass it caused; the full render
// state is fetched through the export endpoint in any sink format.
//
//	POST   /sessions
//	GET    /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	GET    /sessions/{id}/export?format=json|svg|dot|graphviz
//	POST   /sessions/{id}/nodes/{key}/click
//	POST   /sessions/{id}/nodes/{key}/ctrl-click
//	PATCH  /sessions/{id}/config
//	PUT    /sessions/{id}/transform
//	POST   /sessions/{id}/collapse-all
//	POST   /sessions/{id}/expand-all
//	POST   /sessions/{id}/collapse-below?depth=N
//	GET    /healthz
//	GET    /version
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/trialviz/pkg/buildinfo"
	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
)

// DefaultMaxSessions bounds the number of live sessions.
const DefaultMaxSessions = 256

// maxBody bounds request bodies, inline datasets included.
const maxBody = 32 << 20

// Server serves viewer sessions.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	config   reconcile.Config
	sessions *store
	metrics  http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request and session logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithConfig sets the engine configuration of new sessions. Requests may
// override it per session.
func WithConfig(c reconcile.Config) Option { return func(s *Server) { s.config = c.WithDefaults() } }

// WithMaxSessions sets the session limit. When it is reached, the least
// recently used session is evicted.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sessions.max = n
		}
	}
}

// WithMetrics mounts h under /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// New returns a server that loads datasets through runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		logger:   log.Default(),
		config:   reconcile.DefaultConfig(),
		sessions: newStore(DefaultMaxSessions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of live sessions.
func (s *Server) Len() int { return s.sessions.len() }

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.len()})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, buildinfo.Get())
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.getSession))
			r.Delete("/", s.deleteSession)
			r.Get("/export", s.withSession(s.export))
			r.Post("/nodes/{key}/click", s.withSession(s.click))
			r.Post("/nodes/{key}/ctrl-click", s.withSession(s.ctrlClick))
			r.Patch("/config", s.withSession(s.changeConfig))
			r.Put("/transform", s.withSession(s.transform))
			r.Post("/collapse-all", s.withSession(s.collapseAll))
			r.Post("/expand-all", s.withSession(s.expandAll))
			r.Post("/collapse-below", s.withSession(s.collapseBelow))
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
