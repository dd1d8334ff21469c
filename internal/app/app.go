// Package app builds the calculator's stores, exporter and server from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gacha-lab/internal/blob"
	"gacha-lab/internal/config"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/orchestrator"
	"gacha-lab/internal/reporting"
	"gacha-lab/internal/server"
	"gacha-lab/internal/storage"
	chstore "gacha-lab/internal/storage/clickhouse"
	"gacha-lab/internal/storage/memory"
	"gacha-lab/internal/storage/migrations"
	pgstore "gacha-lab/internal/storage/postgres"
)

// App holds the wired components of one process.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *observability.Metrics

	Results storage.ResultStore
	Stats   storage.CategoryStatStore // nil when analytics is off

	Exporter     *reporting.Exporter // nil when export is off
	Reports      *reporting.Generator
	Orchestrator *orchestrator.Orchestrator
	Server       *server.Server

	closers []func() error
}

// Options for creating App.
type Options struct {
	Logger  *zap.Logger            // nil disables logging
	Metrics *observability.Metrics // nil uses observability.DefaultMetrics
}

// New connects the configured stores, runs their migrations and builds the
// orchestrator and server. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     opts.Logger,
		Metrics: opts.Metrics,
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	if a.Metrics == nil {
		a.Metrics = observability.DefaultMetrics
	}

	if err := a.openResults(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openStats(ctx); err != nil {
		a.Close()
		return nil, err
	}

	sink, err := blob.Open(ctx, cfg.Export)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open export sink: %w", err)
	}
	if sink != nil {
		a.Exporter = reporting.NewExporter(sink, cfg.Export.Format, a.Log, a.Metrics)
	}

	a.Reports = reporting.NewGenerator(a.Results)
	a.Orchestrator = orchestrator.New(orchestrator.Options{
		Logger:            a.Log.Named("orchestrator"),
		Metrics:           a.Metrics,
		ResultStore:       a.Results,
		CategoryStatStore: a.Stats,
		Delay:             cfg.CalcDelay(),
	})
	a.Server = server.New(server.Options{
		Orchestrator:      a.Orchestrator,
		ResultStore:       a.Results,
		CategoryStatStore: a.Stats,
		Exporter:          a.Exporter,
		Logger:            a.Log.Named("server"),
		Metrics:           a.Metrics,
	})

	a.Log.Info("app ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("analytics", cfg.Storage.AnalyticsDriver),
		zap.String("export", cfg.Export.Driver),
		zap.Duration("calc_delay", cfg.CalcDelay()),
	)
	return a, nil
}

func (a *App) openResults(ctx context.Context) error {
	switch a.Config.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, a.Config.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		a.Results = pgstore.NewResultStore(pool)
	default:
		a.Results = memory.NewResultStoreWithRetention(a.Config.Storage.MemoryRetention)
	}
	return nil
}

func (a *App) openStats(ctx context.Context) error {
	switch a.Config.Storage.AnalyticsDriver {
	case config.DriverClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, a.Config.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		a.Stats = chstore.NewCategoryStatStore(conn)
	case config.DriverMemory:
		a.Stats = memory.NewCategoryStatStoreWithRetention(a.Config.Storage.MemoryRetention)
	}
	return nil
}

// Close releases store connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
