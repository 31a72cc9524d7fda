package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Ruscigno/QuantLab/pkg/ingest"
	"github.com/Ruscigno/QuantLab/pkg/service"
)

var (
	ingestDays    int
	ingestMigrate bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest SYMBOL...",
	Short: "Fetch and store daily bars for one or more symbols",
	Long: `Fetch the last N days of daily bars for each symbol and store them.
Rows already stored are left untouched.
    ex) quantlab ingest AAPL MSFT --days 90`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVarP(&ingestDays, "days", "d", 0, "lookback in days (default LOOKBACK_DAYS)")
	ingestCmd.Flags().BoolVar(&ingestMigrate, "migrate", false, "run migrations first")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if ingestMigrate {
		if err := a.db.RunMigrations(cmd.Context()); err != nil {
			return err
		}
	}

	ingester, err := a.newIngester()
	if err != nil {
		return err
	}

	days := a.cfg.LookbackDays
	if cmd.Flags().Changed("days") {
		days = ingestDays
	}
	if days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	var (
		mu      sync.Mutex
		reports []ingest.Report
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.IngestConcurrency)

	for _, arg := range args {
		symbol := service.NormalizeSymbol(arg)
		if symbol == "" {
			continue
		}
		g.Go(func() error {
			report := ingester.IngestReport(ctx, symbol, days)
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return report.Err
		})
	}
	err = g.Wait()

	out := cmd.OutOrStdout()
	for _, r := range reports {
		line := fmt.Sprintf("%s: %d rows (%d new, %d existing, %d skipped, %d failed)",
			r.Symbol, r.Count(), r.Inserted, r.Duplicates, r.Skipped, r.Failed)
		if r.RetrievalErr != nil {
			line += " retrieval failed: " + r.RetrievalErr.Error()
		}
		fmt.Fprintln(out, line)
	}
	return err
}
