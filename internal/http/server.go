// Package http serves the upload form, the report dashboard and the JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/middleware/ratelimit"
	"pedidos/internal/middleware/security"
	"pedidos/internal/middleware/trace"
	"pedidos/internal/services"
	appweb "pedidos/web"
)

// ReportService is what the handlers need from the service layer.
type ReportService interface {
	Generate(ctx context.Context, up services.Upload, sel services.Selection) (services.Report, error)
	Refilter(ctx context.Context, uploadID string, sel services.Selection) (services.Report, error)
	RecentRuns(ctx context.Context, limit int) ([]core.ReportRun, error)
}

type Options struct {
	MaxUploadBytes int64
	Logger         *applog.Logger
	// Ready is checked by /readyz; nil means always ready.
	Ready          func(ctx context.Context) error
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	reports   ReportService
	logger    *applog.Logger
	maxUpload int64
	ready     func(ctx context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, reports ReportService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		reports:   reports,
		logger:    logger,
		maxUpload: opts.MaxUploadBytes,
		ready:     opts.Ready,
		limiter:   ratelimit.NewLimiter(opts.RateLimit, logger),
		detector:  security.NewDetector(logger),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /reports", limited(http.HandlerFunc(s.handleUploadReport)))
	mux.Handle("GET /reports/{upload}", security.NoStore(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("POST /api/reports", limited(http.HandlerFunc(s.handleAPIReport)))
	mux.Handle("GET /api/reports/{upload}", security.NoStore(http.HandlerFunc(s.handleAPIRefilter)))
	mux.HandleFunc("GET /api/runs", s.handleAPIRuns)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		m := s.tracer.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.GetMetrics().TotalHits,
			"suspicious", s.detector.GetMetrics().SuspiciousRequests)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, apiError{Error: "too many uploads, please wait a minute"})
}
