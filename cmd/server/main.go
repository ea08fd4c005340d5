package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"quint/internal/catalog"
	"quint/internal/config"
	"quint/internal/interview"
	"quint/internal/metrics"
	provreg "quint/internal/providers/registry"
	"quint/internal/queue"
	"quint/internal/registry"
	"quint/internal/settings"
	"quint/internal/storage"
	"quint/internal/vault"
	"quint/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("db_driver", cfg.DB.Driver).
		Int("worker_concurrency", cfg.Worker.Concurrency).
		Int("default_question_count", cfg.Interview.DefaultQuestionCount).
		Msg("starting quint")

	if cfg.Vault.Fallback {
		log.Warn().Msg("MASTER_KEY is not set, using the built-in non-production fallback key; stored credentials are NOT secure")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate, cfg.DB.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	v, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}

	m := metrics.Global()
	reg := registry.New(store, v, log.Logger)
	set := settings.New(store)
	clients := &provreg.Builder{
		HTTPClient:  &http.Client{Timeout: cfg.HTTP.ClientTimeout},
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.HTTP.BackoffBase,
	}
	orch := interview.New(reg, set, catalog.NewResolver(log.Logger), clients, log.Logger)

	jobQueue := queue.NewStreamQueue(rdb, cfg.Redis.QueueStream, cfg.Redis.QueueGroup, cfg.Worker.ConsumerName, cfg.Redis.QueueBlock)

	errCh := make(chan error, 2)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	w := worker.New(worker.Config{
		Store:         store,
		Queue:         jobQueue,
		Synthesizer:   orch,
		Limiter:       queue.NewRateLimiter(rdb, cfg.Rate.PerHour),
		Dedupe:        queue.NewSynthesisDeduplicator(rdb, cfg.Redis.DedupeTTL),
		MaxJobRetries: cfg.Worker.MaxRetries,
		Logger:        log.Logger,
		Metrics:       m,
	})
	go func() {
		if err := w.Start(ctx, cfg.Worker.Concurrency); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("worker failed: %w", err)
		}
	}()
	log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("synthesis worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
