package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Open the durable store, running any pending schema migrations",
	Long: `migrate opens persistent.sqlite, runs every pending migration step in
order, and reports the resulting schema version. Safe to run against an
already-current database: migrations are idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		version, err := db.SchemaVersion()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		logger.Printf("migrate: store opened at schema version %d (current %d)", version, sqlite.CurrentSchemaVersion)
		fmt.Printf("schema version: %d (current: %d)\n", version, sqlite.CurrentSchemaVersion)
		return nil
	},
}

func init() {
	addStoreDirFlag(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}
