package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/config"
	"github.com/sells-group/vendor-portal/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vendor-portal",
	Short: "Supplier qualification portal backend",
	Long:  "Serves the vendor qualification API: supplier registration, compliance document uploads and spreadsheet-reconciled homologation status.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore builds the configured store backend.
func openStore(cmd *cobra.Command) (store.Store, error) {
	if cfg.Store.Driver == "sqlite" {
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
	return store.NewPostgres(cmd.Context(), cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
