package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mordorlabs/transcript-pipeline/internal/config"
	"github.com/mordorlabs/transcript-pipeline/internal/events"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
	"github.com/mordorlabs/transcript-pipeline/internal/orchestrator"
	"github.com/mordorlabs/transcript-pipeline/internal/pipeline"
	"github.com/mordorlabs/transcript-pipeline/internal/queue"
	"github.com/mordorlabs/transcript-pipeline/internal/resilience"
	"github.com/mordorlabs/transcript-pipeline/internal/storage"
	"github.com/mordorlabs/transcript-pipeline/internal/transport"
	"github.com/mordorlabs/transcript-pipeline/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Int("concurrency", cfg.Concurrency).
		Int("queue_capacity", cfg.QueueCapacity).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Transcript pipeline starting")

	// Select the persistence backend. Without Supabase credentials the
	// pipeline still runs, it just keeps results in memory.
	var store storage.Store
	if cfg.SupabaseURL != "" {
		pgStore, err := storage.NewPostgrestStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Supabase store")
		}
		store = pgStore
		logger.Info().Str("supabase_url", cfg.SupabaseURL).Msg("Using Supabase persistence")
	} else {
		store = storage.NewMemoryStore()
		logger.Warn().Msg("SUPABASE_URL not set, results are kept in memory only")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal().Err(err).Msg("Storage unreachable")
	}
	cancelPing()

	client := transport.NewClient(cfg)

	// Ops endpoints: liveness, readiness, metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"api": func(ctx context.Context) (bool, error) {
			return client.HealthCheck(ctx), nil
		},
		"storage": func(ctx context.Context) (bool, error) {
			if err := store.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	opsServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.OpsPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.OpsPort).Msg("Ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ops server failed to start")
		}
	}()

	// SIGINT/SIGTERM trigger a graceful drain: ingestion stops, queued and
	// in-flight transcripts finish, dead letters are flushed
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := client.Authenticate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Authentication failed")
	}
	logger.Info().Msg("Authenticated with transcript API")

	publisher := events.New(&events.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Enabled: cfg.KafkaEnabled,
	})

	breaker := resilience.NewCircuitBreaker(
		"submit",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	workQueue := queue.New(cfg.QueueCapacity)
	sink := queue.NewDeadLetterSink()
	processor := pipeline.NewProcessor(pipeline.StubSummarizer{}, pipeline.StubAnalyzer{})
	pool := worker.NewPool(cfg.Concurrency, workQueue, sink, store, session, processor, breaker)

	openStream := func(ctx context.Context) (orchestrator.TranscriptSource, error) {
		return session.StreamTranscripts(ctx)
	}
	orch := orchestrator.New(openStream, workQueue, sink, pool, publisher)

	deadLetters, runErr := orch.Run(ctx)

	if stats, err := session.GetStats(context.Background()); err == nil {
		logger.Info().Interface("stats", stats).Msg("Upstream pipeline stats")
	} else {
		logger.Warn().Err(err).Msg("Failed to fetch upstream stats")
	}

	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close dead-letter publisher")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Ops server forced to shutdown")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Int("dead_letters", deadLetters).Msg("Pipeline run failed")
		os.Exit(1)
	}

	logger.Info().Int("dead_letters", deadLetters).Msg("Pipeline exited gracefully")
}
