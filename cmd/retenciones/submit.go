package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/share"
)

var submitCmd = &cobra.Command{
	Use:   "submit FILE.pdf...",
	Short: "Extract and register one or more retention PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerID()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			pdf, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			res, err := a.svc.SubmitPDF(ctx, owner, filepath.Base(path), pdf)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			if res.Duplicate {
				fmt.Fprintf(out, "%s: %s\n", path, res.DuplicateMessage)
				continue
			}
			fmt.Fprintf(out, "%s: registrada %s (id %s)\n", path, res.Record.NumeroRetencion, res.Record.ID)
			fmt.Fprintln(out, share.Summary(res.Record.RetentionData))
		}
		if failed > 0 {
			return eris.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
