package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cyvadra/stockwatch/internal/handlers"
	"github.com/Cyvadra/stockwatch/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the scheduler (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, closeApp, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp()
	log := a.Logger

	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer a.Scheduler.Stop()

	h := handlers.NewHandler(handlers.Dependencies{
		Pipeline:      a.Pipeline,
		Skus:          a.Skus,
		History:       a.History,
		Alerts:        a.Alerts,
		SystemConfigs: a.SystemConfigs,
		SearchConfigs: a.SearchConfigs,
		RunLogs:       a.RunLogs,
		Scheduler:     a.Scheduler,
		Exporter:      a.Exporter,
		Logger:        log.With("component", "api"),
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	addr := fmt.Sprintf("%s:%s", a.Config.Server.Host, a.Config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr, "provider", a.Config.Provider.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
