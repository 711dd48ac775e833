package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "warehouse", cfg.Provider.Name)
	assert.Equal(t, time.Hour, cfg.Provider.TokenTTL)
	assert.Equal(t, "0 2 * * *", cfg.Schedules.FetchCron)
	assert.Equal(t, "30 2 * * *", cfg.Schedules.AnalysisCron)
	assert.Equal(t, 7, cfg.Thresholds.Timespan)
	assert.Equal(t, 0.03, cfg.Thresholds.Threshold)
	assert.Equal(t, 1.5, cfg.Thresholds.MediumMultiplier)
	assert.Equal(t, time.Second, cfg.Provider.RequestDelay)
}

func TestLoadConfigRequestDelay(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    time.Duration
	}{
		{name: "unset keeps default", content: "provider:\n  username: ops\n", want: time.Second},
		{name: "explicit zero disables", content: "provider:\n  request_delay: 0s\n", want: 0},
		{name: "negative clamps to zero", content: "provider:\n  request_delay: -5s\n", want: 0},
		{name: "custom", content: "provider:\n  request_delay: 300ms\n", want: 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Provider.RequestDelay)
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
database:
  driver: sqlite
  dsn: test.db
provider:
  base_url: https://wh.example.com/api
  username: ops
  token_ttl: 30m
  request_delay: 250ms
schedules:
  timezone: UTC
  fetch_cron: "0 */6 * * *"
thresholds:
  alert_threshold: 0.05
endpoints:
  - name: ops-hook
    type: webhook
    url: https://hooks.example.com/x
    is_active: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://wh.example.com/api", cfg.Provider.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Provider.TokenTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.RequestDelay)
	assert.Equal(t, "0 */6 * * *", cfg.Schedules.FetchCron)
	assert.Equal(t, "30 2 * * *", cfg.Schedules.AnalysisCron)
	assert.Equal(t, 0.05, cfg.Thresholds.Threshold)
	assert.Equal(t, 20.0, cfg.Thresholds.MaxDailyConsumption)
	require.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvProviderPassword, "from-env")
	t.Setenv(EnvDBDSN, "env.db")
	t.Setenv(EnvRequestDelay, "2s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Provider.Password)
	assert.Equal(t, "env.db", cfg.Database.DSN)
	assert.Equal(t, 2*time.Second, cfg.Provider.RequestDelay)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "server: [unterminated"},
		{name: "bad driver", content: "database:\n  driver: oracle\n"},
		{name: "bad timezone", content: "schedules:\n  timezone: Mars/Olympus\n"},
		{name: "bad endpoint", content: "endpoints:\n  - name: x\n    type: pigeon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Provider.BaseURL = "https://wh.example.com"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider.BaseURL, loaded.Provider.BaseURL)
	assert.Equal(t, cfg.Provider.TokenTTL, loaded.Provider.TokenTTL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STOCKWATCH_TEST_DOTENV=hello\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("STOCKWATCH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "hello", os.Getenv("STOCKWATCH_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestThresholdValues(t *testing.T) {
	values := Default().Thresholds.ThresholdValues()
	assert.Equal(t, "7", values["alert_timespan"])
	assert.Equal(t, "0.03", values["alert_threshold"])
	assert.Equal(t, "1.5", values["medium_multiplier"])
}

func TestProviderValidate(t *testing.T) {
	p := Default().Provider
	assert.Error(t, p.Validate())

	p.BaseURL = "https://wh.example.com"
	assert.Error(t, p.Validate())

	p.Username = "ops"
	assert.NoError(t, p.Validate())
}
