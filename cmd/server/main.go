// Package main provides the entry point for the researcher profile service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scholarmap/researcher-profile-service/internal/bibliometrics"
	"github.com/scholarmap/researcher-profile-service/internal/citations"
	"github.com/scholarmap/researcher-profile-service/internal/compare"
	"github.com/scholarmap/researcher-profile-service/internal/config"
	"github.com/scholarmap/researcher-profile-service/internal/database"
	"github.com/scholarmap/researcher-profile-service/internal/enrichment"
	"github.com/scholarmap/researcher-profile-service/internal/identity"
	"github.com/scholarmap/researcher-profile-service/internal/keywords"
	"github.com/scholarmap/researcher-profile-service/internal/llm"
	"github.com/scholarmap/researcher-profile-service/internal/observability"
	"github.com/scholarmap/researcher-profile-service/internal/profile"
	"github.com/scholarmap/researcher-profile-service/internal/repository"
	httpserver "github.com/scholarmap/researcher-profile-service/internal/server/http"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/sources/github"
	"github.com/scholarmap/researcher-profile-service/internal/sources/huggingface"
	"github.com/scholarmap/researcher-profile-service/internal/sources/openalex"
	"github.com/scholarmap/researcher-profile-service/internal/sources/semanticscholar"
	"github.com/scholarmap/researcher-profile-service/internal/venuerank"
)

// metricsNamespace prefixes all Prometheus metric names.
const metricsNamespace = "scholarmap"

// sourceHTTPClient builds a metrics-instrumented HTTP client for one upstream.
func sourceHTTPClient(src config.SourceConfig, name string, metrics *observability.Metrics) *sources.HTTPClient {
	return sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   src.Timeout,
		RateLimit: src.RateLimit,
		Source:    name,
		Metrics:   metrics,
	})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("researcher-profile-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	repo := repository.NewPgProfileRepository(db)
	metrics := observability.NewMetrics(metricsNamespace)

	// Source clients share instrumented HTTP clients so every upstream
	// request lands in the per-source metrics.
	dblpClient := dblp.NewClient(dblp.Config{
		BaseURL:   cfg.Sources.DBLP.BaseURL,
		Timeout:   cfg.Sources.DBLP.Timeout,
		RateLimit: cfg.Sources.DBLP.RateLimit,
	}, sourceHTTPClient(cfg.Sources.DBLP, "dblp", metrics), logger)

	scholarHTTP := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:      cfg.Sources.SemanticScholar.Timeout,
		RateLimit:    cfg.Sources.SemanticScholar.RateLimit,
		APIKey:       cfg.Sources.SemanticScholar.APIKey,
		APIKeyHeader: semanticscholar.APIKeyHeader,
		Source:       "semanticscholar",
		Metrics:      metrics,
	})
	scholarClient := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:   cfg.Sources.SemanticScholar.BaseURL,
		APIKey:    cfg.Sources.SemanticScholar.APIKey,
		Timeout:   cfg.Sources.SemanticScholar.Timeout,
		RateLimit: cfg.Sources.SemanticScholar.RateLimit,
	}, scholarHTTP, logger)

	openalexClient := openalex.NewClient(openalex.Config{
		BaseURL:   cfg.Sources.OpenAlex.BaseURL,
		Timeout:   cfg.Sources.OpenAlex.Timeout,
		RateLimit: cfg.Sources.OpenAlex.RateLimit,
	}, sourceHTTPClient(cfg.Sources.OpenAlex, "openalex", metrics), logger)

	// Profile reconciler with its optional collaborators.
	snapshots := bibliometrics.NewSnapshotCache(cfg.Citations.CacheTTL)
	reconciler := profile.NewReconciler(dblpClient, repo, snapshots, logger).
		WithMetrics(metrics)

	if table, err := venuerank.LoadTableFile(cfg.VenueRank.CSVPath); err != nil {
		logger.Warn().Err(err).Str("path", cfg.VenueRank.CSVPath).
			Msg("venue ranking table unavailable, publications will not be ranked")
	} else {
		reconciler.WithRanker(venuerank.NewRanker(table, cfg.VenueRank.MatchThreshold))
	}

	if cfg.Citations.Enabled {
		limiter := sources.NewRateLimiter(cfg.Citations.RateLimit, 1)
		reconciler.WithCitations(citations.NewResolver(scholarClient, limiter, logger).
			WithMetrics(metrics))
	}

	if cfg.Keywords.Enabled {
		reconciler.WithTopics(keywords.NewHTTPExtractor(keywords.Config{
			Endpoint: cfg.Keywords.Endpoint,
			TopN:     cfg.Keywords.TopN,
			Timeout:  cfg.Keywords.Timeout,
		}, nil, logger))
	}

	if cfg.LLM.Enabled {
		reconciler.WithDescriber(llm.NewDescriber(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, nil, logger))
	}

	matcher := identity.NewMatcher(scholarClient, dblpClient, logger).WithMetrics(metrics)
	fetcher := enrichment.NewFetcher(openalexClient,
		sources.NewRateLimiter(cfg.Sources.OpenAlex.RateLimit, 1), logger).
		WithMetrics(metrics)

	// Best-effort presence sources.
	var codeSource httpserver.CodePresenceSource
	if cfg.Sources.GitHub.Enabled {
		githubClient, err := github.NewClient(github.Config{
			Token:   cfg.Sources.GitHub.APIKey,
			Timeout: cfg.Sources.GitHub.Timeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("create github client: %w", err)
		}
		codeSource = githubClient
	}

	var modelHub httpserver.ModelHubSource
	if cfg.Sources.HuggingFace.Enabled {
		modelHub = huggingface.NewClient(huggingface.Config{
			BaseURL:   cfg.Sources.HuggingFace.BaseURL,
			Timeout:   cfg.Sources.HuggingFace.Timeout,
			RateLimit: cfg.Sources.HuggingFace.RateLimit,
		}, sourceHTTPClient(cfg.Sources.HuggingFace, "huggingface", metrics), logger)
	}

	sessions := compare.NewSessionStore(cfg.Compare.TTL, cfg.Compare.MaxItems, logger)
	go sessions.Run(ctx, cfg.Compare.SweepInterval)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		reconciler,
		matcher,
		dblpClient,
		scholarClient,
		fetcher,
		codeSource,
		modelHub,
		repo,
		sessions,
		db,
		logger,
	)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("researcher-profile-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down researcher-profile-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("researcher-profile-service shutdown complete")
	return nil
}
