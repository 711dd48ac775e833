package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Provider   ProviderConfig   `yaml:"provider"`
	Schedules  SchedulesConfig  `yaml:"schedules"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Endpoints  []EndpointConfig `yaml:"endpoints"`
	Email      EmailConfig      `yaml:"email"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql
	DSN    string `yaml:"dsn"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ProviderConfig describes the upstream warehouse API
type ProviderConfig struct {
	Name           string        `yaml:"name"`
	BaseURL        string        `yaml:"base_url"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestDelay   time.Duration `yaml:"request_delay"`
}

// SchedulesConfig holds the cron expressions of the built-in schedules
type SchedulesConfig struct {
	Timezone          string `yaml:"timezone"`
	FetchCron         string `yaml:"fetch_cron"`
	AnalysisCron      string `yaml:"analysis_cron"`
	AnalyzeAfterFetch bool   `yaml:"analyze_after_fetch"`
}

// ThresholdsConfig seeds the alert thresholds stored in system configs
type ThresholdsConfig struct {
	Timespan            int     `yaml:"alert_timespan"`
	Threshold           float64 `yaml:"alert_threshold"`
	MinDailyConsumption float64 `yaml:"min_daily_consumption"`
	MaxDailyConsumption float64 `yaml:"max_daily_consumption"`
	MediumMultiplier    float64 `yaml:"medium_multiplier"`
}

// EndpointConfig represents a downstream alert endpoint
type EndpointConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // webhook, telegram, email
	URL      string `yaml:"url"`
	Token    string `yaml:"token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
	IsActive bool   `yaml:"is_active"`
}

// EmailConfig is the SMTP account used by email endpoints
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// DefaultRequestDelay is the pause between consecutive provider lookups
const DefaultRequestDelay = time.Second

// Default returns a configuration with every field set to its default
func Default() *Config {
	cfg := &Config{Provider: ProviderConfig{RequestDelay: DefaultRequestDelay}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields. request_delay is the exception: it
// is preset by Default so that an explicit 0 disables the pause.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "stockwatch.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "warehouse"
	}
	if c.Provider.TokenTTL <= 0 {
		c.Provider.TokenTTL = time.Hour
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = 15 * time.Second
	}
	if c.Provider.RequestDelay < 0 {
		c.Provider.RequestDelay = 0
	}
	if c.Schedules.Timezone == "" {
		c.Schedules.Timezone = "Asia/Shanghai"
	}
	if c.Schedules.FetchCron == "" {
		c.Schedules.FetchCron = "0 2 * * *"
	}
	if c.Schedules.AnalysisCron == "" {
		c.Schedules.AnalysisCron = "30 2 * * *"
	}
	if c.Thresholds.Timespan <= 0 {
		c.Thresholds.Timespan = 7
	}
	if c.Thresholds.Threshold <= 0 {
		c.Thresholds.Threshold = 0.03
	}
	if c.Thresholds.MinDailyConsumption <= 0 {
		c.Thresholds.MinDailyConsumption = 5
	}
	if c.Thresholds.MaxDailyConsumption <= 0 {
		c.Thresholds.MaxDailyConsumption = 20
	}
	if c.Thresholds.MediumMultiplier <= 0 {
		c.Thresholds.MediumMultiplier = 1.5
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
}

// Validate checks the fields the pipeline cannot run without
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Schedules.Timezone); err != nil {
		return fmt.Errorf("invalid schedules.timezone %q: %w", c.Schedules.Timezone, err)
	}
	for _, ep := range c.Endpoints {
		switch ep.Type {
		case "webhook", "telegram", "email":
		default:
			return fmt.Errorf("endpoint %s: unsupported type %q", ep.Name, ep.Type)
		}
	}
	return nil
}

// Validate checks the settings needed to reach the provider
func (p ProviderConfig) Validate() error {
	if p.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if p.Username == "" {
		return errors.New("provider.username is required")
	}
	return nil
}

// Location returns the time zone schedules and record dates are evaluated in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedules.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ThresholdValues renders the thresholds as system config key/value pairs
func (t ThresholdsConfig) ThresholdValues() map[string]string {
	return map[string]string{
		"alert_timespan":        strconv.Itoa(t.Timespan),
		"alert_threshold":       strconv.FormatFloat(t.Threshold, 'f', -1, 64),
		"min_daily_consumption": strconv.FormatFloat(t.MinDailyConsumption, 'f', -1, 64),
		"max_daily_consumption": strconv.FormatFloat(t.MaxDailyConsumption, 'f', -1, 64),
		"medium_multiplier":     strconv.FormatFloat(t.MediumMultiplier, 'f', -1, 64),
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied either way.
func LoadConfig(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
