package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinochelo/extractor/internal/common"
)

var (
	cfg    *common.Config
	logger *slog.Logger

	flagOwner string
	flagStore string
)

var rootCmd = &cobra.Command{
	Use:   "retenciones",
	Short: "Extract, track and void Ecuadorian retention receipts",
	Long: "Reads retención PDFs with an LLM, keeps a per-user history with duplicate detection, " +
		"and walks each record through Solicitado, Pendiente Anular and Anulado.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := common.LoadDotEnv(); err != nil {
			return err
		}
		c := common.LoadConfig()
		if flagStore != "" {
			c.Store.Driver = strings.ToLower(flagStore)
		}
		if flagOwner != "" {
			c.Server.DefaultOwner = flagOwner
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = common.NewLoggerTo(os.Stderr, cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagOwner, "owner", "", "owner id records are filed under (env RETENCIONES_OWNER)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store driver: sqlite, postgres or memory (env STORE_DRIVER)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
