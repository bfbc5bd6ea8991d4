// Package httpapi is the HTTP surface of the ad uploader: the create-ad
// endpoint that runs a job synchronously, the server-sent progress stream,
// presigned browser upload URLs and a health check.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fpang/meta-ad-uploader/internal/pipeline"
	"github.com/fpang/meta-ad-uploader/internal/progress"
)

// JobRunner runs one ad-creation job. *pipeline.Runner satisfies it.
type JobRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ObjectStore issues presigned URLs for the media bucket.
// *s3util.Bucket satisfies it.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	KeyFromURL(raw string) (string, bool)
}

// Deps are the collaborators of a Server. Store may be nil, which disables
// presigned uploads.
type Deps struct {
	Runner   JobRunner
	Registry *progress.Registry
	Auth     Authenticator
	Store    ObjectStore
}

// Options tune the HTTP surface.
type Options struct {
	UploadDir          string
	MaxUploadBytes     int64
	PresignExpiry      time.Duration
	AllowedOrigins     []string
	OriginVerifySecret string

	// PingInterval is the keep-alive period of progress streams.
	PingInterval time.Duration
	// CloseDelay is how long a progress stream stays open after a terminal event.
	CloseDelay time.Duration
}

const (
	defaultMaxUploadBytes = 1 << 30
	defaultPresignExpiry  = 15 * time.Minute
	defaultPingInterval   = 15 * time.Second
	defaultCloseDelay     = time.Second
)

// Server serves the API.
type Server struct {
	deps Deps
	opts Options
}

// NewServer creates a Server.
func NewServer(deps Deps, opts Options) *Server {
	if deps.Auth == nil {
		deps.Auth = HeaderAuthenticator{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = defaultPresignExpiry
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.CloseDelay <= 0 {
		opts.CloseDelay = defaultCloseDelay
	}
	return &Server{deps: deps, opts: opts}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withLogging)
	r.Use(withMetrics)
	r.Use(s.withCORS)
	r.Use(s.withOriginVerify)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/create-ad", s.handleCreateAd)
		r.Get("/progress/{jobId}", s.handleProgress)
		r.Get("/upload-url", s.handleUploadURL)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"activeJobs": s.deps.Registry.Len(),
	})
}
