package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nijaru/swing-analysis/config"
	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/middleware"
	"github.com/nijaru/swing-analysis/services/analysis"
	"github.com/nijaru/swing-analysis/utils"
	"github.com/nijaru/swing-analysis/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const APIVersionHeader = "X-API-Version"

type Server struct {
	analysis  *AnalysisHandler
	service   *analysis.Service
	validator *validation.Validator
	config    *config.Config
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates the API server. WithAnalysisService is required.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.analysis = NewAnalysisHandler(s.service, s.validator, s.metrics, cfg.Analysis.MaxBodyBytes)

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func WithAnalysisService(svc *analysis.Service, validator *validation.Validator) ServerOption {
	return func(s *Server) {
		s.service = svc
		s.validator = validator
	}
}

// WithMetrics records request metrics into m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"addr":     s.server.Addr,
		"version":  s.config.Version,
		"analyzer": s.service.AnalyzerName(),
		"history":  s.service.HistoryEnabled(),
	}).Info("Starting " + config.Title)
	return s.server.ListenAndServe()
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.WithField("addr", l.Addr().String()).Info("Starting " + config.Title)
	return s.server.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.WithField("uptime", time.Since(s.startTime).String()).Info("Shutting down server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.service == nil {
		return nil
	}
	if err := s.service.Wait(ctx); err != nil {
		s.logger.WithError(err).Warn("Archive uploads still pending at shutdown")
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	if s.config.Middleware.EnableMetrics {
		r.Use(middleware.Metrics(s.metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, s.metrics, errors.NotFound("Server.routes", nil, "Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, s.metrics, errors.New(http.StatusMethodNotAllowed, "Method not allowed", nil))
	})

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.analysis.HandleAnalyze)
	r.Get("/analyses", s.analysis.HandleList)
	r.Get("/analyses/{id}", s.analysis.HandleGet)

	if s.config.Middleware.EnableMetrics && s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.middleware(r)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	mw := s.config.Middleware

	var middlewares []func(http.Handler) http.Handler
	if mw.EnableRequestID {
		middlewares = append(middlewares, middleware.RequestID())
	}
	if mw.EnableLogger {
		middlewares = append(middlewares, middleware.Logging(s.logger))
	}
	if mw.EnableRecover {
		middlewares = append(middlewares, middleware.Recovery(s.logger, s.metrics))
	}
	middlewares = append(middlewares, s.apiVersion)
	if mw.EnableCORS {
		middlewares = append(middlewares, middleware.CORS(s.config.CORS))
	}
	if mw.EnableRateLimit {
		limiter := middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
			s.metrics,
		)
		middlewares = append(middlewares, limiter.Middleware)
	}
	if mw.EnableTimeout {
		middlewares = append(middlewares, middleware.Timeout(s.config.RequestTimeout))
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) apiVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(APIVersionHeader, s.config.Version)
		next.ServeHTTP(w, r)
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
