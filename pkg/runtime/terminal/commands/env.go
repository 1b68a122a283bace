package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/trend-radar/pkg/models/domain"
	"github.com/de-tools/trend-radar/pkg/services/backup"
	"github.com/de-tools/trend-radar/pkg/services/config"
	"github.com/de-tools/trend-radar/pkg/services/export"
	"github.com/de-tools/trend-radar/pkg/services/monitor"
	"github.com/de-tools/trend-radar/pkg/services/ratelimit"
	"github.com/de-tools/trend-radar/pkg/services/trends"
	"github.com/de-tools/trend-radar/pkg/store/duckdb"
	"github.com/de-tools/trend-radar/pkg/store/duckdb/history"
)

const defaultConfigPath = "config.yaml"

// runEnv bundles the wired collaborators of one command invocation.
type runEnv struct {
	cfg      *domain.Config
	scraper  *trends.Scraper
	exporter *export.SheetsExporter
	runner   *monitor.Runner
	db       *sql.DB
}

// buildEnv loads the configuration and wires the full pipeline. A broken
// history database degrades to a run without a local archive; everything
// else is fatal here.
func buildEnv(ctx context.Context, configPath string) (*runEnv, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	scraper := trends.NewScraper(trends.ScraperConfig{
		Session:      trends.SessionConfig{Timeframe: cfg.Timeframe},
		RateInterval: cfg.RateInterval(),
		Retry: ratelimit.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			BaseBackoff: cfg.BaseBackoff(),
			MaxBackoff:  cfg.MaxBackoff(),
		},
	})

	exporter := export.NewSheetsExporter(cfg.Sheets)
	sink := backup.NewSink(cfg.Backup.Dir, *zerolog.Ctx(ctx))

	env := &runEnv{
		cfg:      cfg,
		scraper:  scraper,
		exporter: exporter,
	}

	var archive monitor.History
	if cfg.History.DBPath != "" {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.History.DBPath})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("history database unavailable, continuing without archive")
		} else {
			store, err := history.NewStore(db)
			if err != nil {
				db.Close()
				return nil, err
			}
			env.db = db
			archive = store
		}
	}

	env.runner = monitor.NewRunner(cfg, scraper, exporter, sink, archive)
	return env, nil
}

func (e *runEnv) close() {
	if e.db != nil {
		e.db.Close()
	}
}
