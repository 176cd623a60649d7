package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// Server exposes the content and media services over HTTP.
type Server struct {
	content portfoliocms.Service
	media   portfoliocms.MediaService
	logger  *slog.Logger
	errors  ErrorRenderer
	auth    *jwtauth.JWTAuth
	timeout time.Duration

	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorDetail exposes internal error messages and panic stacks in
// responses. Leave it off in production.
func WithErrorDetail(enabled bool) Option {
	return func(s *Server) { s.errors.showDetail = enabled }
}

// WithJWTSecret requires an HS256 bearer token on every mutating route.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.auth = jwtauth.New("HS256", []byte(secret), nil)
		}
	}
}

// WithRequestTimeout bounds request handling time.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxUploadBytes bounds upload request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// NewServer creates a Server. media may be nil, in which case the media and
// upload routes are not mounted.
func NewServer(content portfoliocms.Service, media portfoliocms.MediaService, opts ...Option) *Server {
	s := &Server{
		content: content,
		media:   media,
		logger:  slog.Default(),
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors.logger = s.logger
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(s.errors.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errors.render(w, r, &portfoliocms.Error{Kind: portfoliocms.KindNotFound, Op: "route", Message: "Route not found"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	protect := s.protect()
	var media *MediaHandler
	if s.media != nil {
		media = NewMediaHandler(s.media, s.errors, s.maxUpload)
		r.Get("/uploads/*", media.ServeUpload)
	}

	r.Route("/api", func(r chi.Router) {
		r.Mount("/homepage", NewHomepageHandler(s.content, s.errors).Routes(protect))
		r.Mount("/content", NewContentHandler(s.content, s.errors).Routes(protect))
		r.Mount("/versions", NewVersionsHandler(s.content, s.errors).Routes(protect))
		if media != nil {
			r.Mount("/media", media.Routes(protect))
		}
	})

	return r
}

func (s *Server) protect() Middleware {
	if s.auth == nil {
		return passthrough
	}
	verify := jwtauth.Verifier(s.auth)
	return func(next http.Handler) http.Handler {
		return verify(s.errors.Authenticator(next))
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.content.ListVersions(ctx, 1); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "err", err)
		resp := HealthResponse{Status: "unavailable"}
		if s.errors.showDetail {
			resp.Error = err.Error()
		}
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, resp)
		return
	}
	render.JSON(w, r, HealthResponse{Status: "ok"})
}
