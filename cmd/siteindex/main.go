// Command siteindex builds the master site index: it fetches the RDB site
// listing for every state sequentially, concatenates the results,
// deduplicates by site number (sites shared between agencies appear in
// more than one listing), and writes a single all-string Parquet file.
//
// The index is the input of the ingest command and only needs rebuilding
// when the site inventory should be refreshed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/riverspeak/nwis-ingest/internal/adapter/nwis"
	"github.com/riverspeak/nwis-ingest/internal/adapter/parquetstore"
	"github.com/riverspeak/nwis-ingest/internal/config"
	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("site index build failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	client := nwis.NewClient(cfg.BaseURL, cfg.ParameterCodes, 30*time.Second, logger)

	ctx := context.Background()
	start := time.Now()

	var all []domain.Site
	for _, state := range domain.USStates {
		sites, err := client.FetchSiteListing(ctx, state)
		if err != nil {
			// A state that fails or returns nothing is logged and skipped;
			// the index is still useful without it.
			logger.Warn("state listing failed", "state", state, "error", err)
			continue
		}
		logger.Info("state fetched", "state", state, "sites", len(sites))
		all = append(all, sites...)
	}

	deduped := dedupeBySiteNo(all)
	logger.Info("deduplicated", "total", len(all), "unique", len(deduped))

	if err := parquetstore.WriteSiteIndex(cfg.SiteIndexPath, deduped); err != nil {
		return err
	}

	logger.Info("site index written",
		"path", cfg.SiteIndexPath,
		"sites", len(deduped),
		"elapsed", time.Since(start).Round(time.Second),
	)
	return nil
}

// dedupeBySiteNo keeps the first occurrence of each site number,
// preserving listing order.
func dedupeBySiteNo(sites []domain.Site) []domain.Site {
	seen := make(map[string]struct{}, len(sites))
	out := make([]domain.Site, 0, len(sites))
	for _, s := range sites {
		if _, ok := seen[s.SiteNo]; ok {
			continue
		}
		seen[s.SiteNo] = struct{}{}
		out = append(out, s)
	}
	return out
}
