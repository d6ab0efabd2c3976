// Package main provides a one-shot worker that re-fetches every stored
// researcher profile from the bibliographic source.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholarmap/researcher-profile-service/internal/bibliometrics"
	"github.com/scholarmap/researcher-profile-service/internal/config"
	"github.com/scholarmap/researcher-profile-service/internal/database"
	"github.com/scholarmap/researcher-profile-service/internal/keywords"
	"github.com/scholarmap/researcher-profile-service/internal/llm"
	"github.com/scholarmap/researcher-profile-service/internal/observability"
	"github.com/scholarmap/researcher-profile-service/internal/profile"
	"github.com/scholarmap/researcher-profile-service/internal/repository"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/venuerank"
)

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
	logger = logger.With().Str("component", "refresh").Logger()
	logger.Info().Msg("profile refresh starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewPgProfileRepository(db)

	dblpClient := dblp.NewClient(dblp.Config{
		BaseURL:   cfg.Sources.DBLP.BaseURL,
		Timeout:   cfg.Sources.DBLP.Timeout,
		RateLimit: cfg.Sources.DBLP.RateLimit,
	}, nil, logger)

	snapshots := bibliometrics.NewSnapshotCache(cfg.Citations.CacheTTL)
	reconciler := profile.NewReconciler(dblpClient, repo, snapshots, logger)

	if table, err := venuerank.LoadTableFile(cfg.VenueRank.CSVPath); err != nil {
		logger.Warn().Err(err).Str("path", cfg.VenueRank.CSVPath).
			Msg("venue ranking table unavailable, publications will not be ranked")
	} else {
		reconciler.WithRanker(venuerank.NewRanker(table, cfg.VenueRank.MatchThreshold))
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

	if err := reconciler.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refresh profiles: %w", err)
	}

	logger.Info().Msg("profile refresh complete")
	return nil
}
