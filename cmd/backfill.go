package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/backfill"
	"github.com/sells-group/vendor-portal/internal/storage"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Restore missing document content from legacy storage roots",
	Long:  "Scans documents whose database row has no binary content, recovers the bytes from any configured storage root and copies them forward to the canonical location.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("backfill"); err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver := storage.NewResolver(cfg.Storage.Roots, cfg.Storage.LogoFile)
		result, err := backfill.Run(cmd.Context(), st, resolver)
		if err != nil {
			return err
		}

		zap.L().Info("backfill complete",
			zap.Int("scanned", result.Scanned),
			zap.Int("restored", result.Restored),
			zap.Int("missing", result.Missing),
			zap.Int("failed", result.Failed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
