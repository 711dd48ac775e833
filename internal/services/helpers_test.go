package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/Cyvadra/stockwatch/internal/database"
	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockProvider is a mock implementation of the provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Login(ctx context.Context, credentials *provider.Credentials) (string, error) {
	args := m.Called(ctx, credentials)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) LookupProduct(ctx context.Context, token, sku string) (*provider.Product, error) {
	args := m.Called(ctx, token, sku)
	if p := args.Get(0); p != nil {
		return p.(*provider.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeProvider serves a fixed catalogue and counts calls
type fakeProvider struct {
	mu       sync.Mutex
	products map[string]*provider.Product
	logins   atomic.Int32
	lookups  atomic.Int32
	delay    time.Duration
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{products: make(map[string]*provider.Product)}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Login(ctx context.Context, credentials *provider.Credentials) (string, error) {
	n := f.logins.Add(1)
	return fmt.Sprintf("token-%d", n), nil
}

func (f *fakeProvider) LookupProduct(ctx context.Context, token, sku string) (*provider.Product, error) {
	f.lookups.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[sku]
	if !ok {
		return nil, provider.NewProviderError("fake", provider.CodeNotFound, "unknown sku", 404, provider.ErrNotFound)
	}
	cp := *p
	cp.Regions = append([]provider.RegionStock(nil), p.Regions...)
	return &cp, nil
}

func (f *fakeProvider) set(sku string, qty map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &provider.Product{SKU: sku, Name: "Product " + sku, MonthSales: 10}
	for _, region := range sortedKeys(qty) {
		p.Regions = append(p.Regions, provider.RegionStock{
			RegionID:   region,
			RegionName: "Region " + region,
			Quantity:   qty[region],
			Price:      decimal.NewFromInt(5),
		})
	}
	f.products[sku] = p
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clock) SetDay(day string) {
	t, err := time.ParseInLocation(models.RecordDateLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.Add(12 * time.Hour)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, "silent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// testStack wires the services against a sqlite file and a provider
type testStack struct {
	db          *gorm.DB
	clock       *clock
	skus        *SkuService
	history     *HistoryService
	alerts      *AlertService
	configs     *SystemConfigService
	searches    *SearchConfigService
	runLogs     *RunLogService
	credentials *CredentialCache
	fetcher     *StockFetcher
	analyzer    *Analyzer
	coordinator *Coordinator
	pipeline    *Pipeline
}

func newTestStack(t *testing.T, p provider.Provider) *testStack {
	t.Helper()
	log := logger.Discard()
	db := newTestDB(t)
	clk := newClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	s := &testStack{db: db, clock: clk}
	s.skus = NewSkuService(db)
	s.history = NewHistoryService(db, time.UTC)
	s.history.SetClock(clk.Now)
	s.alerts = NewAlertService(db)
	s.configs = NewSystemConfigService(db)
	s.searches = NewSearchConfigService(db)
	s.runLogs = NewRunLogService(db)
	s.credentials = NewCredentialCache(p, provider.Credentials{Username: "ops", Password: "secret"}, time.Hour, log)
	s.fetcher = NewStockFetcher(p, s.credentials, s.history, FetcherOptions{RequestTimeout: time.Second}, log)
	s.analyzer = NewAnalyzer(s.skus, s.history, s.alerts, s.configs, log)
	s.coordinator = NewCoordinator(log)
	s.pipeline = NewPipeline(s.coordinator, s.fetcher, s.analyzer, s.skus, s.history, s.searches, s.runLogs, PipelineOptions{}, log)
	return s
}

func (s *testStack) track(t *testing.T, code string) *models.TrackedSku {
	t.Helper()
	sku := &models.TrackedSku{Sku: code}
	require.NoError(t, s.db.Create(sku).Error)
	return sku
}

func (s *testStack) record(t *testing.T, skuID uint, region, day string, qty int) {
	t.Helper()
	require.NoError(t, s.history.Append(context.Background(), &models.InventoryRecord{
		TrackedSkuID: skuID,
		RegionID:     region,
		RegionName:   "Region " + region,
		Quantity:     qty,
		Price:        decimal.NewFromInt(1),
		RecordDate:   day,
	}))
}
