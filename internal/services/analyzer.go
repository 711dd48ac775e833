package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
)

// Thresholds drive alert creation and severity
type Thresholds struct {
	TimespanDays        int     `json:"alert_timespan"`
	Threshold           float64 `json:"alert_threshold"`
	MinDailyConsumption float64 `json:"min_daily_consumption"`
	MaxDailyConsumption float64 `json:"max_daily_consumption"`
	MediumMultiplier    float64 `json:"medium_multiplier"`
}

// DefaultThresholds returns the built-in threshold values
func DefaultThresholds() Thresholds {
	return Thresholds{
		TimespanDays:        7,
		Threshold:           0.03,
		MinDailyConsumption: 5,
		MaxDailyConsumption: 20,
		MediumMultiplier:    1.5,
	}
}

// ParseThresholds builds thresholds from system config values. Each missing
// or malformed key falls back to its default independently.
func ParseThresholds(values map[string]string) (Thresholds, []*ConfigError) {
	t := DefaultThresholds()
	var problems []*ConfigError

	intField := func(key string, dst *int, valid func(int) bool, rule string) {
		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			problems = append(problems, &ConfigError{Key: key, Missing: true})
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			problems = append(problems, &ConfigError{Key: key, Value: raw, Err: err})
			return
		}
		if !valid(v) {
			problems = append(problems, &ConfigError{Key: key, Value: raw, Err: fmt.Errorf("must be %s", rule)})
			return
		}
		*dst = v
	}
	floatField := func(key string, dst *float64, valid func(float64) bool, rule string) {
		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			problems = append(problems, &ConfigError{Key: key, Missing: true})
			return
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			problems = append(problems, &ConfigError{Key: key, Value: raw, Err: err})
			return
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || !valid(v) {
			problems = append(problems, &ConfigError{Key: key, Value: raw, Err: fmt.Errorf("must be %s", rule)})
			return
		}
		*dst = v
	}

	intField(models.ConfigAlertTimespan, &t.TimespanDays, func(v int) bool { return v >= 1 && v <= 365 }, "between 1 and 365")
	floatField(models.ConfigAlertThreshold, &t.Threshold, func(v float64) bool { return v > 0 && v <= 1 }, "in (0, 1]")
	floatField(models.ConfigMinDailyConsumption, &t.MinDailyConsumption, func(v float64) bool { return v >= 0 }, ">= 0")
	floatField(models.ConfigMaxDailyConsumption, &t.MaxDailyConsumption, func(v float64) bool { return v > 0 }, "> 0")
	floatField(models.ConfigMediumMultiplier, &t.MediumMultiplier, func(v float64) bool { return v > 1 }, "> 1")

	return t, problems
}

// Classify returns the alert level for a measured consumption, or
// AlertLevelNone when no alert is due. An alert needs both the rate and the
// daily consumption strictly above their minimums. High is reached by a daily
// consumption at or above the maximum or a rate at or above threshold times
// multiplier squared; medium by a rate at or above threshold times multiplier
// or a daily consumption at or above maximum divided by multiplier.
func Classify(rate, daily float64, t Thresholds) models.AlertLevel {
	if rate <= t.Threshold || daily <= t.MinDailyConsumption {
		return models.AlertLevelNone
	}

	m := t.MediumMultiplier
	switch {
	case daily >= t.MaxDailyConsumption || rate >= t.Threshold*m*m:
		return models.AlertLevelHigh
	case rate >= t.Threshold*m || daily >= t.MaxDailyConsumption/m:
		return models.AlertLevelMedium
	default:
		return models.AlertLevelLow
	}
}

// Episode is the consumption measured between the first and last record of a
// region series
type Episode struct {
	First     models.InventoryRecord
	Last      models.InventoryRecord
	Days      float64
	QtyChange int
	Rate      float64
	Daily     float64
}

// MeasureEpisode computes the consumption of an ascending region series. It
// reports false when the series cannot produce an alert: fewer than two
// points, no elapsed days, no decrease, or an empty starting stock.
func MeasureEpisode(series []models.InventoryRecord) (Episode, bool) {
	if len(series) < 2 {
		return Episode{}, false
	}

	first, last := series[0], series[len(series)-1]
	start, err := first.Day()
	if err != nil {
		return Episode{}, false
	}
	end, err := last.Day()
	if err != nil {
		return Episode{}, false
	}

	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return Episode{}, false
	}
	change := first.Quantity - last.Quantity
	if change <= 0 || first.Quantity == 0 {
		return Episode{}, false
	}

	daily := float64(change) / days
	return Episode{
		First:     first,
		Last:      last,
		Days:      days,
		QtyChange: change,
		Rate:      daily / float64(first.Quantity),
		Daily:     daily,
	}, true
}

// AnalysisResult summarises an analysis run
type AnalysisResult struct {
	NewAlertsCount int            `json:"newAlertsCount"`
	AnalyzedSkus   int            `json:"analyzedSkus"`
	FailedSkus     []string       `json:"failedSkus,omitempty"`
	Alerts         []models.Alert `json:"alerts"`
}

// Analyzer turns inventory history into consumption alerts
type Analyzer struct {
	skus    *SkuService
	history *HistoryService
	alerts  *AlertService
	configs *SystemConfigService
	logger  *slog.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(skus *SkuService, history *HistoryService, alerts *AlertService, configs *SystemConfigService, log *slog.Logger) *Analyzer {
	return &Analyzer{
		skus:    skus,
		history: history,
		alerts:  alerts,
		configs: configs,
		logger:  logger.OrDefault(log),
	}
}

// RunAnalysis analyses one SKU when trackedSkuID is set, otherwise all of
// them. Failures of a single SKU or region are logged and skipped.
func (a *Analyzer) RunAnalysis(ctx context.Context, trackedSkuID *uint) (*AnalysisResult, error) {
	thresholds := a.loadThresholds(ctx)

	var skus []models.TrackedSku
	if trackedSkuID != nil {
		sku, err := a.skus.Get(ctx, *trackedSkuID)
		if err != nil {
			return nil, err
		}
		skus = []models.TrackedSku{*sku}
	} else {
		var err error
		if skus, err = a.skus.List(ctx); err != nil {
			return nil, err
		}
	}

	result := &AnalysisResult{Alerts: []models.Alert{}}
	for i := range skus {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := a.analyzeSku(ctx, &skus[i], thresholds)
		if errors.Is(err, ErrSkuRemoved) {
			a.logger.Info("sku removed during analysis, skipped", "sku", skus[i].Sku)
			continue
		}
		result.AnalyzedSkus++
		result.Alerts = append(result.Alerts, created...)
		result.NewAlertsCount += len(created)
		if err != nil {
			result.FailedSkus = append(result.FailedSkus, skus[i].Sku)
			a.logger.Error("analysis failed for sku", "sku", skus[i].Sku, "error", err)
		}
	}

	a.logger.Info("analysis finished",
		"skus", result.AnalyzedSkus,
		"new_alerts", result.NewAlertsCount,
		"failed", len(result.FailedSkus))
	return result, nil
}

func (a *Analyzer) loadThresholds(ctx context.Context) Thresholds {
	thresholds, problems, err := a.configs.LoadThresholds(ctx)
	if err != nil {
		a.logger.Error("failed to load thresholds, using defaults", "error", err)
		return DefaultThresholds()
	}
	for _, p := range problems {
		if p.Missing {
			a.logger.Debug("threshold not set, using default", "key", p.Key)
		} else {
			a.logger.Warn("invalid threshold, using default", "key", p.Key, "value", p.Value, "error", p.Err)
		}
	}
	return thresholds
}

// analyzeSku reads the SKU's window once and evaluates every region. Region
// failures do not stop the others.
func (a *Analyzer) analyzeSku(ctx context.Context, sku *models.TrackedSku, t Thresholds) (created []models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic analysing %s: %v", sku.Sku, r)
		}
	}()

	records, err := a.history.Query(ctx, sku.ID, t.TimespanDays)
	if err != nil {
		return nil, err
	}

	series, regions := GroupByRegion(records)
	var regionErrs []error
	for _, regionID := range regions {
		alert, err := a.analyzeRegion(ctx, sku, series[regionID], t)
		if errors.Is(err, ErrSkuRemoved) {
			return nil, err
		}
		if err != nil {
			regionErrs = append(regionErrs, fmt.Errorf("region %s: %w", regionID, err))
			a.logger.Error("analysis failed for region", "sku", sku.Sku, "region", regionID, "error", err)
			continue
		}
		if alert != nil {
			created = append(created, *alert)
		}
	}
	if len(regionErrs) > 0 {
		return created, regionErrs[0]
	}
	return created, nil
}

func (a *Analyzer) analyzeRegion(ctx context.Context, sku *models.TrackedSku, series []models.InventoryRecord, t Thresholds) (alert *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ep, ok := MeasureEpisode(series)
	if !ok {
		return nil, nil
	}
	level := Classify(ep.Rate, ep.Daily, t)
	if level == models.AlertLevelNone {
		return nil, nil
	}

	alert = &models.Alert{
		TrackedSkuID: sku.ID,
		Sku:          sku.Sku,
		RegionID:     ep.Last.RegionID,
		RegionName:   ep.Last.RegionName,
		AlertType:    models.AlertTypeFastConsumption,
		AlertLevel:   level,
		CreatedAt:    time.Now(),
	}
	alert.Details = newDetails(ep, t)

	if err := a.alerts.SaveAlert(ctx, alert); err != nil {
		return nil, err
	}
	a.logger.Info("consumption alert created",
		"sku", sku.Sku,
		"region", alert.RegionID,
		"level", level.String(),
		"rate", ep.Rate,
		"daily", ep.Daily)
	return alert, nil
}
