package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/export"
)

var (
	listFollow bool
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the retention history, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		out := cmd.OutOrStdout()
		if !listFollow {
			recs, err := a.svc.Snapshot(ctx, owner)
			if err != nil {
				return err
			}
			return printRecords(out, recs)
		}

		snapshots, err := a.svc.WatchRetentions(ctx, owner)
		if err != nil {
			return err
		}
		for snap := range snapshots {
			if snap.Err != nil {
				logger.Error("list.snapshot.failed", "error", snap.Err)
				continue
			}
			fmt.Fprintf(out, "-- %s (%d)\n", time.Now().Format(time.TimeOnly), len(snap.Records))
			if err := printRecords(out, snap.Records); err != nil {
				return err
			}
		}
		return nil
	},
}

func printRecords(w io.Writer, recs []entity.RetentionRecord) error {
	if listJSON {
		if recs == nil {
			recs = []entity.RetentionRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FECHA\tNRO. RETENCIÓN\tPROVEEDOR\tRUC\tFACTURA\tESTADO\tID")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(export.DateLayout),
			r.NumeroRetencion,
			r.RazonSocialProveedor,
			r.RucProveedor,
			r.NumeroFactura,
			r.Estado,
			r.ID,
		)
	}
	return tw.Flush()
}

func init() {
	listCmd.Flags().BoolVarP(&listFollow, "follow", "f", false, "keep printing the history as it changes")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
