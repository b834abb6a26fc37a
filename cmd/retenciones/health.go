package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/repository"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the configured store is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend, err := repository.OpenBackend(cmd.Context(), cfg.Store, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := repository.HealthCheck(cmd.Context(), backend.Store, healthTimeout, logger); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "store health (%s): FAIL (%v)\n", cfg.Store.Driver, err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store health (%s): OK\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", time.Second, "ping timeout")
	rootCmd.AddCommand(healthCmd)
}
