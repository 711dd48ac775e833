package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/services"
	"github.com/Cyvadra/stockwatch/provider"
	"gorm.io/gorm"
)

// App holds the wired services of one process
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *slog.Logger

	Skus          *services.SkuService
	History       *services.HistoryService
	Alerts        *services.AlertService
	SystemConfigs *services.SystemConfigService
	SearchConfigs *services.SearchConfigService
	RunLogs       *services.RunLogService
	Credentials   *services.CredentialCache
	Fetcher       *services.StockFetcher
	Analyzer      *services.Analyzer
	Coordinator   *services.Coordinator
	Pipeline      *services.Pipeline
	Scheduler     *services.Scheduler
	Exporter      *services.HistoryExporter
	Forwarder     *services.ForwardService
}

// New wires every service on top of db and p, seeds the threshold configs
// and built-in schedules. The scheduler is not started.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, p provider.Provider, log *slog.Logger) (*App, error) {
	log = logger.OrDefault(log)
	loc := cfg.Location()

	a := &App{Config: cfg, DB: db, Logger: log}
	a.Skus = services.NewSkuService(db)
	a.History = services.NewHistoryService(db, loc)
	a.Alerts = services.NewAlertService(db)
	a.SystemConfigs = services.NewSystemConfigService(db)
	a.SearchConfigs = services.NewSearchConfigService(db)
	a.RunLogs = services.NewRunLogService(db)
	a.Exporter = services.NewHistoryExporter(a.History)

	credentials := provider.Credentials{Username: cfg.Provider.Username, Password: cfg.Provider.Password}
	a.Credentials = services.NewCredentialCache(p, credentials, cfg.Provider.TokenTTL, log.With("component", "credentials"))
	a.Fetcher = services.NewStockFetcher(p, a.Credentials, a.History, services.FetcherOptions{
		RequestTimeout: cfg.Provider.RequestTimeout,
		RequestDelay:   cfg.Provider.RequestDelay,
	}, log.With("component", "fetcher"))
	a.Analyzer = services.NewAnalyzer(a.Skus, a.History, a.Alerts, a.SystemConfigs, log.With("component", "analyzer"))
	a.Coordinator = services.NewCoordinator(log.With("component", "coordinator"))

	a.Pipeline = services.NewPipeline(
		a.Coordinator, a.Fetcher, a.Analyzer, a.Skus, a.History, a.SearchConfigs, a.RunLogs,
		services.PipelineOptions{AnalyzeAfterFetch: cfg.Schedules.AnalyzeAfterFetch},
		log.With("component", "pipeline"),
	)
	a.Forwarder = services.NewForwardService(cfg.Endpoints, cfg.Email, log.With("component", "forward"))
	a.Pipeline.SetNotifier(a.Forwarder)

	a.Scheduler = services.NewScheduler(db, a.Pipeline, loc, log.With("component", "scheduler"))

	if err := a.SystemConfigs.SeedDefaults(ctx, cfg.Thresholds.ThresholdValues()); err != nil {
		return nil, fmt.Errorf("failed to seed system configs: %w", err)
	}
	if err := a.Scheduler.EnsureBuiltins(ctx, cfg.Schedules.FetchCron, cfg.Schedules.AnalysisCron); err != nil {
		return nil, fmt.Errorf("failed to seed schedules: %w", err)
	}
	return a, nil
}

// Close waits for pending alert deliveries
func (a *App) Close() {
	a.Pipeline.Wait()
}
