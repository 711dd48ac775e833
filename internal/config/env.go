package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override the YAML file
const (
	EnvProviderBaseURL  = "STOCKWATCH_PROVIDER_BASE_URL"
	EnvProviderUsername = "STOCKWATCH_PROVIDER_USERNAME"
	EnvProviderPassword = "STOCKWATCH_PROVIDER_PASSWORD"
	EnvRequestDelay     = "STOCKWATCH_REQUEST_DELAY"
	EnvDBDriver         = "STOCKWATCH_DB_DRIVER"
	EnvDBDSN            = "STOCKWATCH_DB_DSN"
	EnvLogLevel         = "STOCKWATCH_LOG_LEVEL"
	EnvServerPort       = "STOCKWATCH_PORT"
	EnvSMTPPassword     = "STOCKWATCH_SMTP_PASS"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and deployment knobs from the environment
func (c *Config) ApplyEnv() error {
	setString(&c.Provider.BaseURL, EnvProviderBaseURL)
	setString(&c.Provider.Username, EnvProviderUsername)
	setString(&c.Provider.Password, EnvProviderPassword)
	setString(&c.Database.Driver, EnvDBDriver)
	setString(&c.Database.DSN, EnvDBDSN)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Server.Port, EnvServerPort)
	setString(&c.Email.Password, EnvSMTPPassword)

	if v, ok := os.LookupEnv(EnvRequestDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequestDelay, err)
		}
		c.Provider.RequestDelay = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
