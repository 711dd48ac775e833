package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
)

const notifyTimeout = 30 * time.Second

// BatchAddFailure is a SKU that could not be registered
type BatchAddFailure struct {
	Sku    string `json:"sku"`
	Reason string `json:"reason"`
}

// BatchAddResult is the outcome of registering several SKUs
type BatchAddResult struct {
	Added   []models.TrackedSku `json:"added"`
	Skipped []string            `json:"skipped"`
	Failed  []BatchAddFailure   `json:"failed"`
}

// SearchResult is the outcome of a SKU search run
type SearchResult struct {
	ConfigID uint               `json:"config_id"`
	Hits     []models.SearchHit `json:"hits"`
	Failed   []string           `json:"failed"`
}

// PipelineStatus reports the run lock state
type PipelineStatus struct {
	Running bool    `json:"running"`
	Current *Runner `json:"current,omitempty"`
}

// PipelineOptions tunes the pipeline
type PipelineOptions struct {
	// AnalyzeAfterFetch chains an analysis pass onto scheduled fetches,
	// inside the same lock
	AnalyzeAfterFetch bool
}

// Pipeline is the only entry point for work that touches the provider or
// writes history and alerts. Every operation runs under the coordinator's
// lock and leaves a run log behind.
type Pipeline struct {
	coordinator *Coordinator
	fetcher     *StockFetcher
	analyzer    *Analyzer
	skus        *SkuService
	history     *HistoryService
	searches    *SearchConfigService
	runLogs     *RunLogService
	notifier    AlertNotifier
	opts        PipelineOptions
	logger      *slog.Logger

	notifying sync.WaitGroup
}

// NewPipeline creates a new pipeline
func NewPipeline(
	coordinator *Coordinator,
	fetcher *StockFetcher,
	analyzer *Analyzer,
	skus *SkuService,
	history *HistoryService,
	searches *SearchConfigService,
	runLogs *RunLogService,
	opts PipelineOptions,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		coordinator: coordinator,
		fetcher:     fetcher,
		analyzer:    analyzer,
		skus:        skus,
		history:     history,
		searches:    searches,
		runLogs:     runLogs,
		opts:        opts,
		logger:      logger.OrDefault(log),
	}
}

// SetNotifier sets where new alerts are forwarded
func (p *Pipeline) SetNotifier(n AlertNotifier) {
	p.notifier = n
}

// Status reports whether a run is active
func (p *Pipeline) Status() PipelineStatus {
	running, current := p.coordinator.Status()
	return PipelineStatus{Running: running, Current: current}
}

// Wait blocks until in-flight alert deliveries finish
func (p *Pipeline) Wait() {
	p.notifying.Wait()
}

// FetchNow fetches every tracked SKU
func (p *Pipeline) FetchNow(ctx context.Context, by string) (*FetchReport, error) {
	var report *FetchReport
	runner := Runner{Task: models.RunKindInventoryFetch, Trigger: TriggerManual, By: by}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		var err error
		report, err = p.fetchAll(ctx, log)
		return err
	})
	return report, err
}

// FetchSku fetches a single tracked SKU
func (p *Pipeline) FetchSku(ctx context.Context, trackedSkuID uint, by string) (*FetchedSku, error) {
	var fetched *FetchedSku
	runner := Runner{Task: models.RunKindSkuFetch, Trigger: TriggerManual, By: by}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		sku, err := p.skus.Get(ctx, trackedSkuID)
		if err != nil {
			return err
		}
		fetched, err = p.fetcher.FetchOne(ctx, sku)
		if err != nil {
			log.Failed = 1
			log.FailedSkus = []string{sku.Sku}
			return err
		}
		log.Processed = 1
		return nil
	})
	return fetched, err
}

// AddTrackedSku looks the SKU up and registers it with its first snapshot.
// Unknown SKUs are not registered.
func (p *Pipeline) AddTrackedSku(ctx context.Context, code, by string) (*models.TrackedSku, error) {
	var sku *models.TrackedSku
	runner := Runner{Task: models.RunKindSkuRegister, Trigger: TriggerManual, By: by}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		var err error
		sku, err = p.addOne(ctx, code)
		if err != nil {
			log.Failed = 1
			log.FailedSkus = []string{code}
			return err
		}
		log.Processed = 1
		return nil
	})
	return sku, err
}

// AddTrackedSkus registers several SKUs in one run. Already tracked SKUs are
// skipped and per-SKU failures collected; an authentication failure aborts
// the rest.
func (p *Pipeline) AddTrackedSkus(ctx context.Context, codes []string, by string) (*BatchAddResult, error) {
	result := &BatchAddResult{Added: []models.TrackedSku{}, Skipped: []string{}, Failed: []BatchAddFailure{}}
	runner := Runner{Task: models.RunKindSkuRegister, Trigger: TriggerManual, By: by}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		for i, code := range normalizeList(codes) {
			if i > 0 {
				if err := p.fetcher.pause(ctx); err != nil {
					return err
				}
			}
			sku, err := p.addOne(ctx, code)
			if err != nil {
				if errors.Is(err, ErrAuth) {
					return err
				}
				if errors.Is(err, ErrAlreadyTracked) {
					result.Skipped = append(result.Skipped, code)
					continue
				}
				result.Failed = append(result.Failed, BatchAddFailure{Sku: code, Reason: err.Error()})
				log.FailedSkus = append(log.FailedSkus, code)
				continue
			}
			result.Added = append(result.Added, *sku)
		}
		log.Processed = len(result.Added)
		log.Failed = len(result.Failed)
		return nil
	})
	return result, err
}

// RunAnalysisNow analyses one SKU, or all when trackedSkuID is nil
func (p *Pipeline) RunAnalysisNow(ctx context.Context, trackedSkuID *uint, by string) (*AnalysisResult, error) {
	var result *AnalysisResult
	runner := Runner{Task: models.RunKindInventoryAnalysis, Trigger: TriggerManual, By: by}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		var err error
		result, err = p.analyze(ctx, trackedSkuID, log)
		return err
	})
	if result != nil {
		p.notify(result.Alerts)
	}
	return result, err
}

// RunSearch executes a saved SKU search
func (p *Pipeline) RunSearch(ctx context.Context, configID uint, by string) (*SearchResult, error) {
	runner := Runner{Task: models.RunKindSkuSearch, Trigger: TriggerManual, By: by}
	return p.runSearch(ctx, runner, configID)
}

// RunSchedule is invoked by the scheduler when a schedule fires
func (p *Pipeline) RunSchedule(ctx context.Context, schedule models.Schedule) error {
	scheduleID := schedule.ID
	runner := Runner{Trigger: TriggerScheduled, By: schedule.Name, ScheduleID: &scheduleID}

	switch schedule.Kind {
	case models.ScheduleKindInventoryFetch:
		runner.Task = models.RunKindInventoryFetch
		var alerts []models.Alert
		err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
			if _, err := p.fetchAll(ctx, log); err != nil {
				return err
			}
			if !p.opts.AnalyzeAfterFetch {
				return nil
			}
			result, err := p.analyze(ctx, nil, log)
			if result != nil {
				alerts = result.Alerts
			}
			return err
		})
		p.notify(alerts)
		return err

	case models.ScheduleKindInventoryAnalysis:
		runner.Task = models.RunKindInventoryAnalysis
		var alerts []models.Alert
		err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
			result, err := p.analyze(ctx, nil, log)
			if result != nil {
				alerts = result.Alerts
			}
			return err
		})
		p.notify(alerts)
		return err

	case models.ScheduleKindSkuSearch:
		runner.Task = models.RunKindSkuSearch
		if schedule.ConfigID == nil {
			return validationError("schedule %s has no search config", schedule.Name)
		}
		_, err := p.runSearch(ctx, runner, *schedule.ConfigID)
		return err

	default:
		return validationError("unknown schedule kind %q", schedule.Kind)
	}
}

func (p *Pipeline) fetchAll(ctx context.Context, log *models.RunLog) (*FetchReport, error) {
	skus, err := p.skus.List(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.fetcher.FetchAll(ctx, skus)
	if report != nil {
		log.Processed += len(report.Succeeded)
		log.Failed += len(report.Failed)
		log.FailedSkus = append(log.FailedSkus, report.Failed...)
	}
	return report, err
}

func (p *Pipeline) analyze(ctx context.Context, trackedSkuID *uint, log *models.RunLog) (*AnalysisResult, error) {
	result, err := p.analyzer.RunAnalysis(ctx, trackedSkuID)
	if result != nil {
		log.NewAlerts += result.NewAlertsCount
		if log.Kind == models.RunKindInventoryAnalysis {
			log.Processed = result.AnalyzedSkus - len(result.FailedSkus)
			log.Failed = len(result.FailedSkus)
			log.FailedSkus = append(log.FailedSkus, result.FailedSkus...)
		}
	}
	return result, err
}

func (p *Pipeline) addOne(ctx context.Context, code string) (*models.TrackedSku, error) {
	code = provider.NormalizeSKU(code)
	if code == "" {
		return nil, validationError("sku is required")
	}
	exists, err := p.skus.Exists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTracked, code)
	}

	product, err := p.fetcher.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.history.TrackWithSnapshot(ctx, code, product)
}

func (p *Pipeline) runSearch(ctx context.Context, runner Runner, configID uint) (*SearchResult, error) {
	result := &SearchResult{ConfigID: configID, Hits: []models.SearchHit{}, Failed: []string{}}
	err := p.runLocked(ctx, runner, func(ctx context.Context, log *models.RunLog) error {
		cfg, err := p.searches.Get(ctx, configID)
		if err != nil {
			return err
		}
		for i, code := range cfg.Skus {
			if i > 0 {
				if err := p.fetcher.pause(ctx); err != nil {
					return err
				}
			}
			product, err := p.fetcher.Lookup(ctx, code)
			if err != nil {
				if errors.Is(err, ErrAuth) {
					return err
				}
				p.logger.Warn("search lookup failed", "config", cfg.Name, "sku", code, "error", err)
				result.Failed = append(result.Failed, code)
				continue
			}
			result.Hits = append(result.Hits, MatchHits(cfg, product)...)
		}
		log.Processed = len(cfg.Skus) - len(result.Failed)
		log.Failed = len(result.Failed)
		log.FailedSkus = result.Failed
		log.Hits = result.Hits
		return nil
	})
	return result, err
}

// runLocked acquires the run lock, runs fn and records the run log. A busy
// lock returns the BusyError without logging a run. The run is detached from
// the caller's cancellation: once started it completes or fails on its own,
// bounded by the per-request provider timeout.
func (p *Pipeline) runLocked(ctx context.Context, runner Runner, fn func(ctx context.Context, log *models.RunLog) error) error {
	ctx = context.WithoutCancel(ctx)
	return p.coordinator.Run(ctx, runner, func(ctx context.Context, r Runner) (err error) {
		log := &models.RunLog{
			RunID:       r.ID,
			Kind:        r.Task,
			Trigger:     string(r.Trigger),
			TriggeredBy: r.By,
			ScheduleID:  r.ScheduleID,
			StartedAt:   r.StartedAt,
		}
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("run %s panicked: %v", r.ID, rec)
			}
			p.finish(ctx, log, err)
		}()
		return fn(ctx, log)
	})
}

func (p *Pipeline) finish(ctx context.Context, log *models.RunLog, err error) {
	log.FinishedAt = time.Now()
	log.Status = models.RunStatusCompleted
	if err != nil {
		log.Status = models.RunStatusFailed
		log.Error = err.Error()
	}

	runsTotal.WithLabelValues(string(log.Kind), string(log.Status)).Inc()
	runDuration.WithLabelValues(string(log.Kind)).Observe(log.FinishedAt.Sub(log.StartedAt).Seconds())

	if recErr := p.runLogs.Record(ctx, log); recErr != nil {
		p.logger.Error("failed to record run log", "run_id", log.RunID, "error", recErr)
	}

	attrs := []any{
		"run_id", log.RunID,
		"kind", log.Kind,
		"status", log.Status,
		"processed", log.Processed,
		"failed", log.Failed,
		"new_alerts", log.NewAlerts,
		"duration", log.FinishedAt.Sub(log.StartedAt),
	}
	if err != nil {
		p.logger.Error("run failed", append(attrs, "error", err)...)
		return
	}
	p.logger.Info("run finished", attrs...)
}

func (p *Pipeline) notify(alerts []models.Alert) {
	if p.notifier == nil || len(alerts) == 0 {
		return
	}

	p.notifying.Add(1)
	go func() {
		defer p.notifying.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := p.notifier.Notify(ctx, alerts); err != nil {
			p.logger.Warn("alert delivery incomplete", "alerts", len(alerts), "error", err)
		}
	}()
}
