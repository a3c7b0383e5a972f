// Package server exposes the documentation pipeline over HTTP.
//
// The API is a thin layer: handlers decode JSON, delegate to the
// composer and renderers, and map pipeline errors onto status codes.
// Recoverable enrichment failures travel as warnings inside a 200
// response rather than failing the request.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/events"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/render"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// Composer runs documentation requests. *compose.Composer satisfies it;
// tests substitute stubs.
type Composer interface {
	Compose(ctx context.Context, req compose.Request) (*compose.Result, error)
	GenerateDoxygen(ctx context.Context, source, programmer string) (string, error)
}

// Defaults fills request fields the caller leaves blank.
type Defaults struct {
	// Programmer and Project fill the banner identity fields.
	Programmer string
	Project    string

	// Specs fills the program-specification tuple.
	Specs compose.ProgramSpecs

	// Preferences fills rendering options.
	Preferences render.Options
}

// Server handles documentation API requests.
type Server struct {
	composer       Composer
	logger         *slog.Logger
	recorder       metrics.Recorder
	publisher      *events.Publisher
	metricsHandler http.Handler
	defaults       Defaults
	now            func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Server) {
		s.recorder = rec
	}
}

// WithMetricsHandler mounts an exposition handler at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithPublisher sets the event publisher. A nil publisher disables
// event emission.
func WithPublisher(p *events.Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithDefaults sets the fallback values for blank request fields.
func WithDefaults(d Defaults) Option {
	return func(s *Server) {
		s.defaults = d
	}
}

// New builds a Server around the given composer.
func New(composer Composer, opts ...Option) *Server {
	s := &Server{
		composer: composer,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler: API routes, liveness,
// optional metrics exposition, all wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers("/api/doc", mux)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	return Chain(s.logger)(mux)
}

// RegisterHTTPHandlers registers the documentation API under the given
// prefix. Handlers are registered as:
//
//	POST <prefix>/preview
//	POST <prefix>/render
//	POST <prefix>/doxygen
//	GET  <prefix>/formats
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Normalise: ensure leading slash and trailing slash.
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"preview", s.handlePreview)
	mux.HandleFunc(prefix+"render", s.handleRender)
	mux.HandleFunc(prefix+"doxygen", s.handleDoxygen)
	mux.HandleFunc(prefix+"formats", s.handleFormats)
}
