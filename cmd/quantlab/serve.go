package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/endpoint"
	"github.com/Ruscigno/QuantLab/pkg/service"
	httptransport "github.com/Ruscigno/QuantLab/pkg/transport/http"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion HTTP API",
	Long: `Starts a http server with POST /ingest, GET /status and GET /health.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "run migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := a.db.RunMigrations(cmd.Context()); err != nil {
			return err
		}
	}

	ingester, err := a.newIngester()
	if err != nil {
		return err
	}

	health := service.NewHealthService(a.db, a.cfg.Provider, a.logger, version)
	svc := service.NewService(ingester, a.prices, health, a.cfg.LookbackDays, a.logger)
	handler := httptransport.NewHTTPHandler(endpoint.MakeEndpoints(svc), httptransport.HTTPConfig{
		APIKey:            a.cfg.APIKey,
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
		Logger:            a.logger,
		Metrics:           a.metrics,
	})

	server := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go reportPoolStats(cmd.Context(), a)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	a.logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// reportPoolStats publishes connection pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, a *app) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := a.db.GetStats()
			a.metrics.SetDatabaseConnections(stats.InUse, stats.Idle)
		}
	}
}
