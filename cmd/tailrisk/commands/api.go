package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/internal/api"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

DATABASE_URL이 있으면 리포트를 저장하고, REDIS_ENABLED=true면
시드 고정 시나리오의 리포트를 캐시합니다.

Endpoints:
  GET  /health               - Health check
  POST /api/simulate         - 경로 시뮬레이션 + 최종값 요약
  POST /api/summarize        - 샘플 VaR/CVaR
  POST /api/evt/fit          - GPD 적합
  POST /api/evt/compare      - 정규 vs EVT
  POST /api/reports          - 시나리오 리포트 생성
  GET  /api/reports/{id}     - 리포트 조회

Example:
  go run ./cmd/tailrisk api
  go run ./cmd/tailrisk api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config + logger
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	zl := log.Zerolog()
	zl.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Msg("Initializing API server")

	// 2. Stores (DB/Redis 선택)
	ctx := context.Background()
	st, err := openStores(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer st.Close()

	// 3. Router + server
	router := api.NewHandler(cfg, st.reporter, log.Zerolog())
	server := api.New(cfg, log.Component("api.server"), router)

	// 4. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
