package services

import (
	"context"
	"testing"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemConfigSeedAndSet(t *testing.T) {
	s := NewSystemConfigService(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.SeedDefaults(ctx, map[string]string{
		models.ConfigAlertTimespan:  "7",
		models.ConfigAlertThreshold: "0.03",
	}))
	require.NoError(t, s.Set(ctx, map[string]string{models.ConfigAlertThreshold: " 0.05 "}))
	require.NoError(t, s.SeedDefaults(ctx, map[string]string{models.ConfigAlertThreshold: "0.03"}))

	values, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", values[models.ConfigAlertTimespan])
	assert.Equal(t, "0.05", values[models.ConfigAlertThreshold])

	th, problems, err := s.LoadThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.05, th.Threshold)
	assert.Len(t, problems, 3)

	assert.ErrorIs(t, s.Set(ctx, map[string]string{"shoe_size": "9"}), ErrUnknownConfigKey)
}

func TestSearchConfigSave(t *testing.T) {
	s := NewSearchConfigService(newTestDB(t))
	ctx := context.Background()

	cfg := &models.SearchConfig{Name: " probe ", Skus: []string{"A", " A", "", "B"}}
	require.NoError(t, s.Save(ctx, cfg))
	assert.Equal(t, "probe", cfg.Name)
	assert.Equal(t, []string{"A", "B"}, []string(cfg.Skus))

	stored, err := s.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, []string(stored.Skus))

	assert.ErrorIs(t, s.Save(ctx, &models.SearchConfig{Name: "empty"}), ErrValidation)
	assert.ErrorIs(t, s.Save(ctx, &models.SearchConfig{ID: 99, Name: "ghost", Skus: []string{"A"}}), ErrConfigNotFound)

	require.NoError(t, s.Delete(ctx, cfg.ID))
	assert.ErrorIs(t, s.Delete(ctx, cfg.ID), ErrConfigNotFound)
}
