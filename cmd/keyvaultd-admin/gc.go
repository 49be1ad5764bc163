package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/types"
)

var gcMaxRounds int

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Drive the garbage-collection poll loop by hand",
	Long: `gc repeatedly calls HandleNextSupersededBlobs and reports what it
would destroy on each round. Every blob returned by a round is treated
as confirmed-destroyed before the next round starts, the same
confirm-then-fetch protocol a real collector follows. Stops after
--max-rounds rounds or at the first empty batch, whichever comes first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		var confirmed []int64
		total := 0
		for round := 0; round < gcMaxRounds; round++ {
			batch, err := db.HandleNextSupersededBlobs(ctx, confirmed, cfg.GCBatchSize)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			if len(batch) == 0 {
				fmt.Printf("round %d: nothing pending, stopping\n", round)
				break
			}
			confirmed = confirmed[:0]
			for _, b := range batch {
				fmt.Printf("round %d: blob %d (%s) %d bytes\n", round, b.BlobID, subComponentName(b.SubComponent), len(b.Blob))
				confirmed = append(confirmed, b.BlobID)
			}
			total += len(batch)
			logger.Printf("gc: round %d processed %d blob(s)", round, len(batch))
		}
		fmt.Printf("processed %d blob(s)\n", total)
		return nil
	},
}

func subComponentName(s types.SubComponentType) string {
	return s.String()
}

func init() {
	addStoreDirFlag(gcCmd)
	gcCmd.Flags().IntVar(&gcMaxRounds, "max-rounds", 100, "stop after this many rounds even if more work remains")
	rootCmd.AddCommand(gcCmd)
}
