package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/client"
	"github.com/secirc/secirc/internal/v1/config"
	"github.com/secirc/secirc/internal/v1/health"
	"github.com/secirc/secirc/internal/v1/logging"
	"github.com/secirc/secirc/internal/v1/ratelimit"
	"github.com/secirc/secirc/internal/v1/registry"
	"github.com/secirc/secirc/internal/v1/room"
	"github.com/secirc/secirc/internal/v1/session"
	"github.com/secirc/secirc/internal/v1/tracing"
	"github.com/secirc/secirc/internal/v1/transport"
)

func main() {
	// Load .env for local development; env overrides config file values.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Configuration invalid", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.LogLevel, cfg.Development); err != nil {
		slog.Error("Logger initialization failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := cfg.CheckCertificates(); err != nil {
		logging.Error(ctx, "Certificate check failed", zap.Error(err))
		os.Exit(1)
	}

	// Optional tracing.
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint, cfg.Development)
		if err != nil {
			logging.Error(ctx, "Tracer initialization failed", zap.Error(err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logging.Error(ctx, "Tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	users, err := registry.LoadUsers(cfg.UsersFile)
	if err != nil {
		logging.Error(ctx, "User registry unavailable", zap.Error(err))
		os.Exit(1)
	}
	tokens, err := registry.LoadTokens(cfg.TokensFile)
	if err != nil {
		logging.Error(ctx, "Token registry unavailable", zap.Error(err))
		os.Exit(1)
	}

	dispatcher := session.NewServer(
		users,
		tokens,
		room.NewManager(),
		client.NewManager(),
		ratelimit.NewMessageLimiter(cfg.RateLimit),
	)

	srv, err := transport.NewServer(
		listenAddr(cfg.Port),
		cfg.CertFile,
		cfg.KeyFile,
		cfg.MaxConnections,
		dispatcher,
	)
	if err != nil {
		logging.Error(ctx, "Front door setup failed", zap.Error(err))
		os.Exit(1)
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	// Reload registries when secircctl writes them while we run.
	go func() {
		err := registry.Watch(watchCtx, map[string]registry.Reloader{
			cfg.UsersFile:  users,
			cfg.TokensFile: tokens,
		})
		if err != nil && watchCtx.Err() == nil {
			logging.Error(ctx, "Registry watcher stopped", zap.Error(err))
		}
	}()

	// Optional ops HTTP listener: Prometheus metrics plus health probes.
	var opsSrv *http.Server
	if cfg.MetricsAddr != "" {
		if !cfg.Development {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))

		healthHandler := health.NewHandler(srv)
		router.GET("/health/live", healthHandler.Liveness)
		router.GET("/health/ready", healthHandler.Readiness)

		opsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: router}
		go func() {
			logging.Info(ctx, "Ops server starting", zap.String("addr", cfg.MetricsAddr))
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error(ctx, "Ops server failed", zap.Error(err))
			}
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		if err != nil {
			logging.Error(ctx, "Listener failed", zap.Error(err))
			os.Exit(1)
		}
	case sig := <-quit:
		logging.Info(ctx, "Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "Front door shutdown failed", zap.Error(err))
	}
	if opsSrv != nil {
		if err := opsSrv.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "Ops server shutdown failed", zap.Error(err))
		}
	}

	logging.Info(ctx, "Server exiting")
}

func listenAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
