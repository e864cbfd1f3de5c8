package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/healthplan/scheduler/config"
	"github.com/healthplan/scheduler/internal/email"
	"github.com/healthplan/scheduler/internal/health"
	"github.com/healthplan/scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/healthplan/scheduler/internal/log"
	"github.com/healthplan/scheduler/internal/metrics"
	"github.com/healthplan/scheduler/internal/notify"
	httptransport "github.com/healthplan/scheduler/internal/transport/http"
	"github.com/healthplan/scheduler/internal/transport/http/handler"
	"github.com/healthplan/scheduler/internal/trigger"
	"github.com/healthplan/scheduler/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	// Auth
	userRepo := postgres.NewUserRepository(pool)
	emailSender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, emailSender, []byte(cfg.JWTSecret), cfg.MagicLinkBase)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	// Runs
	runRepo := postgres.NewRunRepository(pool)
	digestSender := notify.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	runService := usecase.NewRunService(runRepo, digestSender, logger, cfg.HorizonDays)
	runHandler := handler.NewRunHandler(runService, runRepo, logger)

	healthHandler := handler.NewHealthHandler(checker)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(runHandler, authHandler, healthHandler, logger, cfg.ClerkJWKSURL, []byte(cfg.JWTSecret)),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, func(ctx context.Context) bool {
		return checker.Readiness(ctx).Status == "up"
	})

	// No nightly digest is sent for any user not present in this map:
	// RunService.Execute skips the digest when the address is empty. The
	// teacher's UserRepository has no "list all" method to populate it from,
	// since auth there is always per-request.
	userEmails := map[string]string{}
	nightlyTrigger, err := trigger.New(cfg.RunTriggerCron, func(runCtx context.Context) (int, int) {
		return runService.RunAllNightly(runCtx, userEmails)
	}, logger)
	if err != nil {
		log.Fatalf("trigger: invalid cron expression %q: %v", cfg.RunTriggerCron, err)
	}
	go nightlyTrigger.Start(ctx)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
