package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/share"
)

var shareCmd = &cobra.Command{
	Use:   "share ID",
	Short: "Print the void request e-mail and clipboard summary for a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerID()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		draft, err := a.svc.ShareDraft(cmd.Context(), owner, args[0])
		if err != nil {
			return err
		}
		rec, err := a.svc.GetRetention(cmd.Context(), owner, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		to := draft.To
		if to == "" {
			to = "(sin e-mail registrado para " + rec.RucProveedor + ")"
		}
		fmt.Fprintf(out, "Para: %s\nAsunto: %s\n\n%s\n", to, draft.Subject, draft.Body)
		fmt.Fprintf(out, "mailto: %s\n\n", draft.MailtoURL())
		fmt.Fprintln(out, share.Summary(rec.RetentionData))
		fmt.Fprintf(out, "\nVerificar autorización %s en %s\n", rec.NumeroAutorizacion, share.VerifyURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
}
