package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfoliocms_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RequestLogger logs one line per request and records request metrics.
func RequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// Recoverer turns panics into a 500 ErrorResponse. The panic value and stack
// are included in the body only when details are enabled.
func (e ErrorRenderer) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := debug.Stack()
			e.logger.ErrorContext(r.Context(), "panic recovered",
				"panic", rec, "stack", string(stack), "request_id", middleware.GetReqID(r.Context()))

			body := ErrorBody{
				Code:      "internal_error",
				Message:   http.StatusText(http.StatusInternalServerError),
				RequestID: middleware.GetReqID(r.Context()),
			}
			if e.showDetail {
				body.Detail = fmt.Sprintf("%v\n%s", rec, stack)
			}
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: body})
		}()

		next.ServeHTTP(w, r)
	})
}

// Authenticator rejects requests whose bearer token failed verification.
// It must run after jwtauth.Verifier.
func (e ErrorRenderer) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			e.logger.DebugContext(r.Context(), "unauthorized request",
				"method", r.Method, "path", r.URL.Path, "err", err)
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: ErrorBody{
				Code:      "unauthorized",
				Message:   "Authentication required",
				RequestID: middleware.GetReqID(r.Context()),
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}
