// Command ingest downloads the full IV time-series window for every state
// and materializes one Parquet file per state. It takes no arguments;
// completed states are skipped, so an interrupted run resumes where it
// left off.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/riverspeak/nwis-ingest/internal/adapter/http"
	kafkaadapter "github.com/riverspeak/nwis-ingest/internal/adapter/kafka"
	"github.com/riverspeak/nwis-ingest/internal/adapter/nwis"
	"github.com/riverspeak/nwis-ingest/internal/adapter/parquetstore"
	"github.com/riverspeak/nwis-ingest/internal/config"
	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
	"github.com/riverspeak/nwis-ingest/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Without the index no partition can be resolved.
	index, err := parquetstore.LoadSiteIndex(cfg.SiteIndexPath)
	if err != nil {
		return fmt.Errorf("load site index: %w", err)
	}
	logger.Info("site index loaded", "path", cfg.SiteIndexPath, "sites", index.Len())

	store, err := parquetstore.NewStore(cfg.OutputDir, cfg.MinOutputBytes, logger)
	if err != nil {
		return err
	}

	client := nwis.NewClient(cfg.BaseURL, cfg.ParameterCodes, cfg.FetchTimeout, logger)
	fetcher := nwis.NewRetryingFetcher(client, cfg.MaxConcurrency, cfg.FetchAttempts, cfg.RetryBaseDelay, clock, metrics, logger)

	// Completion announcements are feature-flagged via KAFKA_ENABLED.
	var notifier pipeline.CompletionNotifier
	if cfg.KafkaEnabled {
		n := kafkaadapter.NewNotifier(cfg, clock, logger)
		defer func() {
			if err := n.Close(); err != nil {
				logger.Error("kafka notifier close error", "error", err)
			}
		}()
		notifier = n
		logger.Info("completion notifications enabled", "topic", cfg.KafkaCompletionTopic)
	}

	window := domain.TimeWindow{Start: cfg.WindowStart, End: cfg.WindowEnd}
	p := pipeline.New(fetcher, index, store, notifier, window, cfg.SiteType, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("ingestion starting",
		"states", len(domain.USStates),
		"window_start", window.StartDT(),
		"window_end", window.EndDT(),
		"max_concurrency", cfg.MaxConcurrency,
	)

	failed := 0
	for _, state := range domain.USStates {
		if ctx.Err() != nil {
			logger.Info("ingestion interrupted", "reason", ctx.Err())
			break
		}
		if _, err := p.Process(ctx, state); err != nil {
			// A failed partition is retried by the next run; keep going.
			logger.Error("partition failed", "state", state, "error", err)
			failed++
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d partition(s) failed; rerun to resume", failed)
	}

	logger.Info("all states completed")
	return nil
}
