package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/config"
	"github.com/Ruscigno/QuantLab/pkg/database"
	"github.com/Ruscigno/QuantLab/pkg/feed"
	"github.com/Ruscigno/QuantLab/pkg/ingest"
	"github.com/Ruscigno/QuantLab/pkg/logging"
	"github.com/Ruscigno/QuantLab/pkg/metrics"
	"github.com/Ruscigno/QuantLab/pkg/repository"
)

var version = "dev"

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:     "quantlab",
	Short:   "Daily price ingestion for QuantLab",
	Long:    `Fetches daily OHLCV bars from a quote provider and stores them in the stock_prices table.`,
	Version: version,
	// Without a subcommand: migrate and report the table size.
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.RunMigrations(cmd.Context()); err != nil {
			a.logger.Warn("Migrations error", zap.Error(err))
		}
		return printStatus(cmd, a, "")
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *database.DB
	prices  repository.PriceRepository
	metrics *metrics.ApplicationMetrics
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(config.Options{EnvFile: envFile, ConfigFile: cfgFile})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.SetupLogger(cfg)

	db, err := database.NewDB(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		prices:  repository.NewPriceRepository(db.DB, logger),
		metrics: metrics.NewApplicationMetrics(metrics.NewSimpleMetricsCollector(logger)),
	}, nil
}

// newIngester builds the configured provider. Failing to build it is the
// only fatal ingestion error.
func (a *app) newIngester() (*ingest.Ingester, error) {
	ingester, err := ingest.New(feed.Options{
		Provider: a.cfg.Provider,
		BaseURL:  a.cfg.ProviderBaseURL,
		Timeout:  a.cfg.ProviderTimeout,
		APIKey:   a.cfg.ProviderAPIKey,
		DataDir:  a.cfg.ProviderDataDir,
		Logger:   a.logger,
	}, a.prices, ingest.WithLogger(a.logger), ingest.WithMetrics(a.metrics))
	if err != nil {
		a.logger.Error("Failed to create quote provider", zap.String("provider", a.cfg.Provider), zap.Error(err))
		return nil, err
	}
	return ingester, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
