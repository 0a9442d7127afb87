package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Version is reported by /healthz and overridden at build time with -ldflags.
var Version = "v0.1.0"

type routerOptions struct {
	timeout  time.Duration
	readyFn  func() error
	rootMids []func(http.Handler) http.Handler
}

// Option customizes NewRouter.
type Option func(*routerOptions)

// WithRequestTimeout overrides the per-request timeout (60s by default).
func WithRequestTimeout(d time.Duration) Option {
	return func(o *routerOptions) { o.timeout = d }
}

// WithReadiness makes /healthz report 503 while check returns an error.
func WithReadiness(check func() error) Option {
	return func(o *routerOptions) { o.readyFn = check }
}

// WithMiddleware appends middleware that runs before route registration.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(o *routerOptions) { o.rootMids = append(o.rootMids, mw...) }
}

// NewRouter returns a chi router pre-configured with default middleware and a health endpoint.
func NewRouter(service string, register func(r chi.Router), opts ...Option) *chi.Mux {
	options := routerOptions{timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(options.timeout))
	for _, mw := range options.rootMids {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Service: service, Version: Version}
		if options.readyFn != nil {
			if err := options.readyFn(); err != nil {
				resp.Status = "degraded"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	if register != nil {
		register(r)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
