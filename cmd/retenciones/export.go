package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [OUT.xlsx]",
	Short: "Write the retention history to an XLSX workbook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerID()
		if err != nil {
			return err
		}
		path := export.FileName(time.Now())
		if len(args) == 1 {
			path = args[0]
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.svc.ExportXLSX(cmd.Context(), owner)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
