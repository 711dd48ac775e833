package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeRegions(t *testing.T) {
	regions := []RegionStock{
		{RegionID: "east", Quantity: 10},
		{RegionID: "west", Quantity: 3},
		{RegionID: "east", Quantity: 12},
		{RegionID: "  ", Quantity: 99},
	}

	out := DedupeRegions(regions)
	require.Len(t, out, 2)
	assert.Equal(t, "east", out[0].RegionID)
	assert.Equal(t, 12, out[0].Quantity)
	assert.Equal(t, "west", out[1].RegionID)

	assert.Nil(t, DedupeRegions(nil))
}

func TestNormalizeProduct(t *testing.T) {
	in := &Product{
		SKU:        " A-1 ",
		MonthSales: -4,
		Regions: []RegionStock{
			{RegionID: "r1", Quantity: -5, Price: decimal.NewFromInt(3)},
		},
	}

	out := NormalizeProduct(in)
	assert.Equal(t, "A-1", out.SKU)
	assert.Equal(t, 0, out.MonthSales)
	require.Len(t, out.Regions, 1)
	assert.Equal(t, 0, out.Regions[0].Quantity)
	assert.Equal(t, "r1", out.Regions[0].RegionName)
	assert.Equal(t, -5, in.Regions[0].Quantity)
	assert.Nil(t, NormalizeProduct(nil))
}

func TestErrorClassification(t *testing.T) {
	unauthorized := NewProviderError("warehouse", CodeUnauthorized, "session rejected", 401, ErrUnauthorized)
	assert.True(t, IsAuthError(unauthorized))
	assert.False(t, IsTemporaryError(unauthorized))
	assert.Contains(t, unauthorized.Error(), "[warehouse] UNAUTHORIZED")

	wrapped := fmt.Errorf("fetch: %w", NewProviderError("warehouse", CodeServer, "boom", 502, nil))
	assert.True(t, IsTemporaryError(wrapped))

	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrNotFound)))
	assert.False(t, IsTemporaryError(errors.New("plain")))
	assert.False(t, IsTemporaryError(nil))
}

func TestCreateUnknownProvider(t *testing.T) {
	_, err := Create("does-not-exist", Settings{})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
