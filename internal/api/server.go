package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wonny/tailrisk/internal/api/handlers"
	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/pkg/config"
)

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
	config     *config.Config
}

// New creates a new API server
func New(cfg *config.Config, log zerolog.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second, // 대형 앙상블 응답
			IdleTimeout:  60 * time.Second,
		},
		log:    log,
		config: cfg,
	}
}

// NewHandler wires engine, reporter, limiter and router from config
func NewHandler(cfg *config.Config, reporter *report.Reporter, log zerolog.Logger) http.Handler {
	calibrator := risk.Calibrator{
		ThresholdPercentile: cfg.Risk.ThresholdPercentile,
		MinExceedances:      cfg.Risk.MinExceedances,
		Confidence:          cfg.Risk.Confidence,
	}
	engine := risk.NewEngineWithCalibrator(calibrator, log)
	limiter := rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)

	h := handlers.NewRiskHandler(engine, reporter, cfg.API.MaxCells, log.With().Str("component", "api.handlers").Logger())
	return NewRouter(h, limiter, log.With().Str("component", "api").Logger())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("port", s.config.Port).
		Str("env", s.config.Env).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
