package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Cyvadra/stockwatch/internal/app"
	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/Cyvadra/stockwatch/internal/database"
	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/provider"
	"github.com/spf13/cobra"

	_ "github.com/Cyvadra/stockwatch/provider/warehouse"
	_ "time/tzdata"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "stockwatch",
	Short:         "Warehouse stock monitor and consumption alerter",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().String("env", ".env", "path to .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the .env file and the YAML config named by the root flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	configFile, _ := cmd.Flags().GetString("config")

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", configFile, err)
	}
	return cfg, nil
}

// bootstrap loads config, opens the database and wires the services. The
// returned func closes everything.
func bootstrap(ctx context.Context, cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Provider.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	if err := database.InitDatabase(cfg.Database, cfg.Log.Level); err != nil {
		return nil, nil, fmt.Errorf("initializing database: %w", err)
	}
	db := database.GetDB()

	p, err := provider.Create(cfg.Provider.Name, provider.Settings{
		BaseURL:        cfg.Provider.BaseURL,
		RequestTimeout: cfg.Provider.RequestTimeout,
	})
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, db, p, log)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	closeFn := func() {
		a.Close()
		if err := database.Close(db); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
	return a, closeFn, nil
}
