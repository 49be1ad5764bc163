package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts across every table the store owns",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fmt.Printf("keyentry:      %d\n", s.KeyEntries)
		fmt.Printf("blobentry:     %d\n", s.BlobEntries)
		fmt.Printf("blobmetadata:  %d\n", s.BlobMetaData)
		fmt.Printf("keyparameter:  %d\n", s.KeyParameters)
		fmt.Printf("keymetadata:   %d\n", s.KeyMetaData)
		fmt.Printf("grant:         %d\n", s.Grants)
		return nil
	},
}

func init() {
	addStoreDirFlag(statsCmd)
	rootCmd.AddCommand(statsCmd)
}
