package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/chatgate/internal/apiclient"
	"github.com/hitoshi/chatgate/internal/config"
	"github.com/hitoshi/chatgate/internal/handler"
	"github.com/hitoshi/chatgate/internal/logger"
	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/session"
	"github.com/hitoshi/chatgate/internal/tracing"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// .envでLOG_LEVELが設定された場合に備えて作り直す
	log = logger.SetupDefault(w, cfg.LogLevel)

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

// Server はHTTPサーバーとその依存関係をまとめたもの。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	handler       http.Handler
	metricsServer *http.Server
	limiter       *middleware.RateLimiter
	shutdownTrace tracing.ShutdownFunc
}

// NewServer は設定から全依存関係をワイヤリングしたServerを生成する。
func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	// 1. トレース
	shutdownTrace, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Environment: cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. 外部APIクライアント
	client := apiclient.NewClient(
		cfg.ExternalAPIBaseURL,
		apiclient.NewHTTPClient(cfg.APITimeout),
		log,
		apiclient.WithMetrics(collector),
	)

	// 4. セッション
	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create session codec: %w", err)
	}
	store := session.NewStore(codec, session.Options{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}, session.WithLogger(log))

	// 5. リクエストスロットル（0で無効）
	var limiter *middleware.RateLimiter
	if cfg.RateLimitGeneral > 0 {
		limiter = middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral), collector, log)
	}

	// 6. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		API:                client,
		Sessions:           store,
		Metrics:            collector,
		Logger:             log,
		RateLimiter:        limiter,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		HSTS:               cfg.IsProduction(),
		MaxRequestDuration: cfg.MaxRequestDuration,
	})

	s := &Server{
		cfg:           cfg,
		logger:        log,
		handler:       router,
		limiter:       limiter,
		shutdownTrace: shutdownTrace,
	}
	if cfg.MetricsPort != "" {
		s.metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metrics.SetupMetricsRoute(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

// Handler はルーターを返す。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.cfg.ServerPort,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 上流の応答待ちを含むため、リクエスト上限より少し長くする
		WriteTimeout: s.cfg.MaxRequestDuration + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server listen error: %w", err)
		}
	}()

	if s.metricsServer != nil {
		go func() {
			s.logger.Info("metrics server starting", slog.String("addr", s.metricsServer.Addr))
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server listen error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server...")
	case runErr = <-errCh:
		s.logger.Error("server stopped unexpectedly", slog.String("error", runErr.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("metrics server shutdown failed: %w", err))
		}
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.shutdownTrace(shutdownCtx); err != nil {
		s.logger.Warn("failed to flush traces", slog.String("error", err.Error()))
	}

	if runErr == nil {
		s.logger.Info("HTTP server stopped gracefully")
	}
	return runErr
}

// runServe はHTTPサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(w io.Writer) error {
	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("external_api", cfg.ExternalAPIBaseURL),
	)

	srv, err := NewServer(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
