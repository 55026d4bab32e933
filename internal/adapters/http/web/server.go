// Package web serves the upload page and its form endpoints.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/voxmood/internal/adapters/http/swagger"
	service "github.com/okian/voxmood/internal/app"
	"github.com/okian/voxmood/internal/domain/session"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/okian/voxmood/pkg/logger"
	"github.com/okian/voxmood/pkg/metrics"
)

const (
	// SessionCookie carries the browser session id.
	SessionCookie = "voxmood_session"

	// defaultMaxRequestBytes caps an upload request. Anything between
	// MaxFileSize and this bound still reaches the gate and gets the size
	// rejection.
	defaultMaxRequestBytes = 64 << 20

	// maxMemory is the multipart budget kept in memory; the rest spills to disk.
	maxMemory = upload.MaxFileSize + 1<<20
)

// Dependencies required by the handlers.
type Dependencies interface {
	// Open returns the session for id, creating one when id is unknown.
	Open(ctx context.Context, id string) (*session.Machine, string, bool)

	// Drain returns and clears pending notifications.
	Drain(ctx context.Context, id string) []session.Notification

	// GetStats describes the analysis pipeline.
	GetStats() service.Stats
}

// Server wires HTTP routes for the upload UI.
type Server struct {
	deps       Dependencies
	page       *pageTemplate
	csrfKey    []byte
	secure     bool
	logger     logger.Logger
	pollPeriod int
	maxRequest int64
}

// Option configures a Server.
type Option func(*Server)

// WithCSRF protects form posts with key. secure marks cookies Secure.
func WithCSRF(key []byte, secure bool) Option {
	return func(s *Server) {
		if len(key) > 0 {
			s.csrfKey = key
		}
		s.secure = secure
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPollPeriod sets how often, in seconds, an analyzing page refreshes.
func WithPollPeriod(seconds int) Option {
	return func(s *Server) {
		if seconds > 0 {
			s.pollPeriod = seconds
		}
	}
}

// WithRequestLimit sets the hard cap on a request body in bytes.
func WithRequestLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequest = n
		}
	}
}

// csrfKeyLength is the key size gorilla/csrf authenticates tokens with.
const csrfKeyLength = 32

// NewServer creates the web server. Templates are parsed eagerly.
func NewServer(deps Dependencies, opts ...Option) (*Server, error) {
	if deps == nil {
		return nil, NewKind("NewServer", ErrConfig, "dependencies are required")
	}
	s := &Server{
		deps:       deps,
		logger:     logger.Default().Named("web"),
		pollPeriod: 1,
		maxRequest: defaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.csrfKey) > 0 && len(s.csrfKey) != csrfKeyLength {
		return nil, NewKind("NewServer", ErrConfig, "csrf key must be 32 bytes")
	}
	page, err := parsePage()
	if err != nil {
		return nil, Wrap("NewServer", err)
	}
	s.page = page
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(limitBody(s.maxRequest))

	r.Get("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(r)

	r.Group(func(r chi.Router) {
		if len(s.csrfKey) > 0 {
			r.Use(plaintext(s.secure))
			r.Use(csrf.Protect(s.csrfKey,
				csrf.Secure(s.secure),
				csrf.Path("/"),
				csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
			))
		}
		r.Get("/", MetricsMiddleware(s.handlePage, "page"))
		r.Post("/upload", MetricsMiddleware(s.handleUpload, "upload"))
		r.Post("/reset", MetricsMiddleware(s.handleReset, "reset"))
		r.Get("/api/session", MetricsMiddleware(s.handleSession, "session"))
	})
	return r
}
