package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	maxUploadSize int64
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithMaxUploadSize limits the request body size of job uploads
func WithMaxUploadSize(size int64) Option {
	return func(c *config) {
		c.maxUploadSize = size
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	weldUC interfaces.WeldUseCase,
	jobUC interfaces.JobUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr:          "localhost:8080",
		maxUploadSize: defaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	jobs := NewJobHandler(weldUC, jobUC, cfg.maxUploadSize)
	router.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", jobs.Create)
		r.Post("/{jobID}/weld", jobs.Weld)
		r.Get("/{jobID}/result", jobs.Result)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
