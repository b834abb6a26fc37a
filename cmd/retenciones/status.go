package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
)

var statusCmd = &cobra.Command{
	Use:   "status ID ESTADO",
	Short: "Change a record's estado (Solicitado, \"Pendiente Anular\", Anulado)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerID()
		if err != nil {
			return err
		}
		estado, err := constants.ParseStatus(args[1])
		if err != nil {
			return common.InvalidInputf("%v", err)
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.svc.ChangeStatus(cmd.Context(), owner, args[0], estado); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], estado)
		return nil
	},
}

var actionsJSON bool

var actionsCmd = &cobra.Command{
	Use:   "actions ID",
	Short: "List what can be done with a record in its current estado",
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

		actions, err := a.svc.Actions(cmd.Context(), owner, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if actionsJSON {
			return json.NewEncoder(out).Encode(actions)
		}
		for _, act := range actions {
			if act.Delete {
				fmt.Fprintf(out, "%-28s delete\n", act.Label)
				continue
			}
			fmt.Fprintf(out, "%-28s %s -> %s\n", act.Label, act.Event, act.Target)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a record in any estado",
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

		if err := a.svc.DeleteRetention(cmd.Context(), owner, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	actionsCmd.Flags().BoolVar(&actionsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(statusCmd, actionsCmd, deleteCmd)
}
