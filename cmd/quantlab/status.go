package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ruscigno/QuantLab/pkg/service"
)

var statusSymbol string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print how many rows are stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return printStatus(cmd, a, statusSymbol)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusSymbol, "symbol", "s", "", "also count rows for this symbol")
}

func printStatus(cmd *cobra.Command, a *app, symbol string) error {
	total, err := a.prices.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stock_prices has %d records\n", total)

	if symbol = service.NormalizeSymbol(symbol); symbol != "" {
		n, err := a.prices.CountBySymbol(cmd.Context(), symbol)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records\n", symbol, n)
	}
	return nil
}
