package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/ingest"
)

var (
	watchInitialScan bool
	watchOnce        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Watch a directory and submit every new PDF",
	Long:  "Watch a directory and submit every new PDF. With --once the directory is scanned a single time and the command exits with a summary.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerID()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !watchOnce {
			return runInbox(ctx, a, owner, args[0], watchInitialScan)
		}

		results, stats, err := ingest.NewFSIngestor(a.svc, logger).IngestDirectory(ctx, owner, args[0], true)
		out := cmd.OutOrStdout()
		for _, r := range results {
			switch r.Outcome {
			case ingest.OutcomeCreated:
				fmt.Fprintf(out, "%s: registrada %s (id %s)\n", r.Path, r.Numero, r.RecordID)
			case ingest.OutcomeDuplicate:
				fmt.Fprintf(out, "%s: %s\n", r.Path, r.Message)
			case ingest.OutcomeFailed:
				fmt.Fprintf(out, "%s: %s\n", r.Path, r.Err)
			}
		}
		fmt.Fprintf(out, "%d matched, %d created, %d duplicates, %d unchanged, %d failed\n",
			stats.Matched, stats.Created, stats.Duplicates, stats.Unchanged, stats.Failed)
		if err != nil {
			return err
		}
		if stats.Failed > 0 {
			return eris.Errorf("%d of %d files failed", stats.Failed, stats.Matched)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", true, "submit PDFs already in the directory")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "scan the directory once and exit")
	rootCmd.AddCommand(watchCmd)
}
