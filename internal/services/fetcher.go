package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
)

const maxLookupAttempts = 2

type attemptOutcome int

const (
	attemptOK attemptOutcome = iota
	attemptAuthRetry
	attemptFailed
)

func classifyAttempt(err error) attemptOutcome {
	switch {
	case err == nil:
		return attemptOK
	case provider.IsAuthError(err):
		return attemptAuthRetry
	default:
		return attemptFailed
	}
}

// FetchedSku is a successfully fetched and stored SKU
type FetchedSku struct {
	TrackedSkuID uint                     `json:"tracked_sku_id"`
	Sku          string                   `json:"sku"`
	Name         string                   `json:"name"`
	Qty          int                      `json:"qty"`
	Records      []models.InventoryRecord `json:"records"`
}

// FetchReport is the outcome of a batch fetch
type FetchReport struct {
	Succeeded []FetchedSku `json:"success"`
	Failed    []string     `json:"failed"`
}

// FetcherOptions tunes the fetcher
type FetcherOptions struct {
	RequestTimeout time.Duration
	RequestDelay   time.Duration
}

// StockFetcher pulls stock from the provider and writes it to history
type StockFetcher struct {
	provider       provider.Provider
	credentials    *CredentialCache
	history        *HistoryService
	requestTimeout time.Duration
	requestDelay   time.Duration
	logger         *slog.Logger
}

// NewStockFetcher creates a new stock fetcher
func NewStockFetcher(p provider.Provider, credentials *CredentialCache, history *HistoryService, opts FetcherOptions, log *slog.Logger) *StockFetcher {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &StockFetcher{
		provider:       p,
		credentials:    credentials,
		history:        history,
		requestTimeout: opts.RequestTimeout,
		requestDelay:   opts.RequestDelay,
		logger:         logger.OrDefault(log),
	}
}

// Lookup fetches a normalized product. A rejected token triggers exactly one
// forced re-login and retry. A product with no regions is reported as not
// found.
func (f *StockFetcher) Lookup(ctx context.Context, sku string) (*provider.Product, error) {
	sku = provider.NormalizeSKU(sku)

	var lastErr error
	for attempt := 0; attempt < maxLookupAttempts; attempt++ {
		token, err := f.credentials.Token(ctx, attempt > 0)
		if err != nil {
			return nil, err
		}

		product, err := f.lookupOnce(ctx, token, sku)
		switch classifyAttempt(err) {
		case attemptOK:
			product = provider.NormalizeProduct(product)
			if len(product.Regions) == 0 {
				return nil, fmt.Errorf("%w: %s has no regions", ErrSkuNotFound, sku)
			}
			return product, nil
		case attemptAuthRetry:
			lastErr = err
			f.logger.Warn("provider rejected token, re-authenticating", "sku", sku, "attempt", attempt+1)
		default:
			if provider.IsNotFound(err) {
				return nil, fmt.Errorf("%w: %s: %w", ErrSkuNotFound, sku, err)
			}
			return nil, fmt.Errorf("lookup %s: %w", sku, err)
		}
	}
	return nil, &AuthError{Err: lastErr}
}

func (f *StockFetcher) lookupOnce(ctx context.Context, token, sku string) (*provider.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, f.requestTimeout)
	defer cancel()
	return f.provider.LookupProduct(ctx, token, sku)
}

// FetchOne fetches a tracked SKU and stores the snapshot
func (f *StockFetcher) FetchOne(ctx context.Context, sku *models.TrackedSku) (*FetchedSku, error) {
	product, err := f.Lookup(ctx, sku.Sku)
	if err != nil {
		skuFetchTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	records, err := f.history.SaveSnapshot(ctx, sku, product)
	if err != nil {
		if errors.Is(err, ErrSkuRemoved) {
			skuFetchTotal.WithLabelValues("removed").Inc()
			return nil, err
		}
		skuFetchTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store %s: %w", sku.Sku, err)
	}

	skuFetchTotal.WithLabelValues("ok").Inc()
	return &FetchedSku{
		TrackedSkuID: sku.ID,
		Sku:          sku.Sku,
		Name:         product.Name,
		Qty:          product.TotalQuantity(),
		Records:      records,
	}, nil
}

// FetchAll fetches the given SKUs sequentially, pausing between requests.
// Individual failures are collected; only the inability to log in at all or
// a cancelled context aborts the batch. SKUs removed from tracking while the
// batch runs are left out of the report.
func (f *StockFetcher) FetchAll(ctx context.Context, skus []models.TrackedSku) (*FetchReport, error) {
	report := &FetchReport{Succeeded: []FetchedSku{}, Failed: []string{}}
	if len(skus) == 0 {
		return report, nil
	}

	if _, err := f.credentials.Token(ctx, false); err != nil {
		return report, err
	}

	for i := range skus {
		if i > 0 {
			if err := f.pause(ctx); err != nil {
				return report, err
			}
		}

		fetched, err := f.FetchOne(ctx, &skus[i])
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return report, ctx.Err()
			}
			if errors.Is(err, ErrSkuRemoved) {
				f.logger.Info("sku removed during fetch, skipped", "sku", skus[i].Sku)
				continue
			}
			f.logger.Warn("sku fetch failed", "sku", skus[i].Sku, "error", err)
			report.Failed = append(report.Failed, skus[i].Sku)
			continue
		}
		f.logger.Debug("sku fetched", "sku", fetched.Sku, "qty", fetched.Qty, "regions", len(fetched.Records))
		report.Succeeded = append(report.Succeeded, *fetched)
	}

	f.logger.Info("fetch finished", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}

func (f *StockFetcher) pause(ctx context.Context) error {
	if f.requestDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.requestDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
