package main

import (
	"path/filepath"
	"testing"

	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigWritesDefaults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "config.yaml")
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"init-config", "--out", out})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.LoadConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", cfg.Schedules.FetchCron)
	assert.Equal(t, "30 2 * * *", cfg.Schedules.AnalysisCron)
	assert.Equal(t, 7, cfg.Thresholds.Timespan)

	rootCmd.SetArgs([]string{"init-config", "--out", out})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestExportRequiresSkuID(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"export"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--sku-id")
}
