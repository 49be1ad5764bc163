package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/config"
	"github.com/veilkey/veilkeydb/internal/store/sqlite"
)

// openStore resolves ambient config and opens the durable store the same
// way a host process embedding this module would, running any pending
// migrations in the process.
func openStore(cmd *cobra.Command) (*sqlite.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("store-dir"); dir != "" {
		cfg.StoreDir = dir
	}
	if err := os.MkdirAll(cfg.StoreDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating store dir %s: %w", cfg.StoreDir, err)
	}
	db, err := sqlite.Open(cfg.StoreDir, sqlite.Options{
		PageCacheKiB: cfg.PageCacheKiB,
		MaxListRows:  cfg.MaxListRows,
		GCBatchSize:  cfg.GCBatchSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return db, cfg, nil
}

func addStoreDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("store-dir", "", "directory containing persistent.sqlite (overrides config)")
}
