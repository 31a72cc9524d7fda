package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down N]",
	Short: "Apply or roll back database migrations",
	Long: `Apply or roll back the embedded migrations for the configured driver.
    ex) quantlab migrate
        quantlab migrate down 1`,
	Args: cobra.MaximumNArgs(2),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	steps := 1
	switch direction {
	case "up":
		if len(args) > 1 {
			return fmt.Errorf("migrate up takes no step count")
		}
	case "down":
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
	default:
		return fmt.Errorf("unknown direction %q, want up or down", direction)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if direction == "down" {
		return a.db.RollbackMigrations(cmd.Context(), steps)
	}
	return a.db.RunMigrations(cmd.Context())
}
