package main

import (
	"encoding/json"
	"fmt"
	"os"
	"maps"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage the provider RUC to e-mail directory",
}

var providersImportCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Replace the directory with a CSV holding ruc and email columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close()

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.svc.ImportProviderEmailsCSV(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d providers (%d rows skipped)\n", res.ValidRows, res.SkippedRows)
		return nil
	},
}

var providersLookupCmd = &cobra.Command{
	Use:   "lookup RUC",
	Short: "Print the e-mail saved for a RUC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		email := a.svc.LookupProviderEmail(cmd.Context(), args[0])
		if email == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sin e-mail registrado\n", args[0])
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), email)
		return nil
	},
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the whole directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.svc.ProviderEmails(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ruc := range slices.Sorted(maps.Keys(all)) {
			fmt.Fprintf(out, "%s\t%s\n", ruc, all[ruc])
		}
		return nil
	},
}

var providersSetCmd = &cobra.Command{
	Use:   "set JSON",
	Short: `Replace the directory with a JSON object, e.g. '{"1790000000001":"pagos@acme.ec"}'`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mapping map[string]string
		if err := json.Unmarshal([]byte(args[0]), &mapping); err != nil {
			return eris.Wrap(err, "parse mapping")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return a.svc.ImportProviderEmails(cmd.Context(), mapping)
	},
}

func init() {
	providersCmd.AddCommand(providersImportCmd, providersLookupCmd, providersListCmd, providersSetCmd)
	rootCmd.AddCommand(providersCmd)
}
