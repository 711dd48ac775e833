package services

import (
	"context"
	"testing"
	"time"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func product(sku string, regions ...provider.RegionStock) *provider.Product {
	return &provider.Product{SKU: sku, Name: "Product " + sku, Image: "img/" + sku, MonthSales: 7, Regions: regions}
}

func region(id string, qty int) provider.RegionStock {
	return provider.RegionStock{RegionID: id, RegionName: "Region " + id, Quantity: qty, Price: decimal.RequireFromString("9.90")}
}

var (
	errUnauthorized = provider.NewProviderError("mock", provider.CodeUnauthorized, "expired", 401, provider.ErrUnauthorized)
	errNotFound     = provider.NewProviderError("mock", provider.CodeNotFound, "unknown", 404, provider.ErrNotFound)
)

func TestFetchAllCollectsPerSkuFailures(t *testing.T) {
	p := new(MockProvider)
	p.On("Login", mock.Anything, mock.Anything).Return("tok-1", nil).Once()
	p.On("LookupProduct", mock.Anything, "tok-1", "A").Return(product("A", region("PH", 10)), nil)
	p.On("LookupProduct", mock.Anything, "tok-1", "B").Return(nil, errNotFound)
	p.On("LookupProduct", mock.Anything, "tok-1", "C").Return(product("C", region("PH", 3), region("SG", 4)), nil)

	s := newTestStack(t, p)
	skus := []models.TrackedSku{*s.track(t, "A"), *s.track(t, "B"), *s.track(t, "C")}

	report, err := s.fetcher.FetchAll(context.Background(), skus)
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 2)
	assert.Equal(t, "A", report.Succeeded[0].Sku)
	assert.Equal(t, "C", report.Succeeded[1].Sku)
	assert.Equal(t, 7, report.Succeeded[1].Qty)
	assert.Equal(t, []string{"B"}, report.Failed)

	var count int64
	require.NoError(t, s.db.Model(&models.InventoryRecord{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	b, err := s.skus.Get(context.Background(), skus[1].ID)
	require.NoError(t, err)
	assert.Nil(t, b.LatestQty)

	c, err := s.skus.Get(context.Background(), skus[2].ID)
	require.NoError(t, err)
	require.NotNil(t, c.LatestQty)
	assert.Equal(t, 7, *c.LatestQty)
	assert.Equal(t, "Product C", c.ProductName)
	p.AssertExpectations(t)
}

func TestLookupRetriesOnceAfterUnauthorized(t *testing.T) {
	p := new(MockProvider)
	p.On("Login", mock.Anything, mock.Anything).Return("tok-1", nil).Once()
	p.On("Login", mock.Anything, mock.Anything).Return("tok-2", nil).Once()
	p.On("LookupProduct", mock.Anything, "tok-1", "A").Return(nil, errUnauthorized).Once()
	p.On("LookupProduct", mock.Anything, "tok-2", "A").Return(product("A", region("PH", 10)), nil).Once()

	s := newTestStack(t, p)
	got, err := s.fetcher.Lookup(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)

	p.AssertNumberOfCalls(t, "Login", 2)
	p.AssertNumberOfCalls(t, "LookupProduct", 2)
}

func TestLookupGivesUpAfterSecondUnauthorized(t *testing.T) {
	p := new(MockProvider)
	p.On("Login", mock.Anything, mock.Anything).Return("tok", nil)
	p.On("LookupProduct", mock.Anything, "tok", "A").Return(nil, errUnauthorized)

	s := newTestStack(t, p)
	_, err := s.fetcher.Lookup(context.Background(), "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)

	p.AssertNumberOfCalls(t, "Login", 2)
	p.AssertNumberOfCalls(t, "LookupProduct", 2)
}

func TestLookupNotFound(t *testing.T) {
	tests := []struct {
		name    string
		product *provider.Product
		err     error
	}{
		{name: "provider 404", err: errNotFound},
		{name: "no regions", product: product("A")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockProvider)
			p.On("Login", mock.Anything, mock.Anything).Return("tok", nil)
			p.On("LookupProduct", mock.Anything, "tok", "A").Return(tt.product, tt.err)

			s := newTestStack(t, p)
			_, err := s.fetcher.Lookup(context.Background(), "A")
			assert.ErrorIs(t, err, ErrSkuNotFound)
			p.AssertNumberOfCalls(t, "LookupProduct", 1)
		})
	}
}

func TestFetchOneNormalizesRegions(t *testing.T) {
	p := new(MockProvider)
	p.On("Login", mock.Anything, mock.Anything).Return("tok", nil)
	p.On("LookupProduct", mock.Anything, "tok", "A").
		Return(product("A", region("PH", 10), region("SG", -3), region("PH", 12)), nil)

	s := newTestStack(t, p)
	sku := s.track(t, "A")

	fetched, err := s.fetcher.FetchOne(context.Background(), sku)
	require.NoError(t, err)
	require.Len(t, fetched.Records, 2)
	assert.Equal(t, 12, fetched.Qty)

	records, err := s.history.Query(context.Background(), sku.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "PH", records[0].RegionID)
	assert.Equal(t, 12, records[0].Quantity)
	assert.Equal(t, "SG", records[1].RegionID)
	assert.Equal(t, 0, records[1].Quantity)
	assert.True(t, records[0].Price.Equal(decimal.RequireFromString("9.9")))
}

func TestFetchAllAbortsWhenLoginFails(t *testing.T) {
	p := new(MockProvider)
	p.On("Login", mock.Anything, mock.Anything).Return("", provider.ErrInvalidCredentials)

	s := newTestStack(t, p)
	skus := []models.TrackedSku{*s.track(t, "A")}

	_, err := s.fetcher.FetchAll(context.Background(), skus)
	assert.ErrorIs(t, err, ErrAuth)
	p.AssertNotCalled(t, "LookupProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchAllEmpty(t *testing.T) {
	p := new(MockProvider)
	s := newTestStack(t, p)

	report, err := s.fetcher.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded)
	assert.Empty(t, report.Failed)
	p.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestFetchAllStopsOnCancel(t *testing.T) {
	fp := newFakeProvider()
	fp.set("A", map[string]int{"PH": 1})
	fp.set("B", map[string]int{"PH": 1})

	s := newTestStack(t, fp)
	s.fetcher.requestDelay = time.Minute
	skus := []models.TrackedSku{*s.track(t, "A"), *s.track(t, "B")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := s.fetcher.FetchAll(ctx, skus)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(report.Succeeded), 1)
}
