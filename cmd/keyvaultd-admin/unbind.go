package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/veilkey/veilkeydb/internal/types"
)

var unbindCmd = &cobra.Command{
	Use:   "unbind",
	Short: "Mark keys unreferenced in bulk",
}

var unbindUserCmd = &cobra.Command{
	Use:   "user USER_ID...",
	Short: "Unbind every key owned by one or more users",
	Long: `unbind user marks-unreferenced every client key whose owning uid
belongs to each given user and every super key in that user's Selinux
namespace, deleting grants received by that user first. Multiple user
ids run concurrently, bounded by --workers, to exercise the busy-retry
path under real write contention.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		workers, _ := cmd.Flags().GetInt("workers")
		authBound, _ := cmd.Flags().GetBool("auth-bound")

		ctx := context.Background()
		sem := semaphore.NewWeighted(int64(workers))
		errs := make([]error, len(args))
		done := make(chan struct{}, len(args))

		for i, raw := range args {
			i, raw := i, raw
			if err := sem.Acquire(ctx, 1); err != nil {
				return fmt.Errorf("acquiring worker slot: %w", err)
			}
			go func() {
				defer sem.Release(1)
				defer func() { done <- struct{}{} }()
				userID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					errs[i] = fmt.Errorf("user %q: %w", raw, err)
					return
				}
				if authBound {
					errs[i] = db.UnbindAuthBoundKeysForUser(ctx, userID)
				} else {
					errs[i] = db.UnbindKeysForUser(ctx, userID)
				}
			}()
		}
		for range args {
			<-done
		}

		var failed int
		for i, err := range errs {
			if err != nil {
				failed++
				fmt.Printf("user %s: %v\n", args[i], err)
				continue
			}
			fmt.Printf("user %s: unbound\n", args[i])
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d user unbind(s) failed", failed, len(args))
		}
		return nil
	},
}

var unbindNamespaceCmd = &cobra.Command{
	Use:   "namespace NAMESPACE",
	Short: "Unbind every key in an app uid or selinux namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one namespace argument")
		}
		selinux, _ := cmd.Flags().GetBool("selinux")
		namespace, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("namespace: %w", err)
		}

		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		kind := types.ScopeApp
		if selinux {
			kind = types.ScopeSelinux
		}
		if err := db.UnbindKeysForNamespace(context.Background(), kind, namespace); err != nil {
			return fmt.Errorf("unbind namespace %d: %w", namespace, err)
		}
		fmt.Printf("namespace %d: unbound\n", namespace)
		return nil
	},
}

func init() {
	addStoreDirFlag(unbindUserCmd)
	unbindUserCmd.Flags().Int("workers", 4, "max concurrent unbind operations")
	unbindUserCmd.Flags().Bool("auth-bound", false, "restrict to keys requiring a secure-lock-screen credential")

	addStoreDirFlag(unbindNamespaceCmd)
	unbindNamespaceCmd.Flags().Bool("selinux", false, "treat NAMESPACE as a selinux policy namespace instead of an app uid")

	unbindCmd.AddCommand(unbindUserCmd, unbindNamespaceCmd)
	rootCmd.AddCommand(unbindCmd)
}
