package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/types"
)

var createKeyCmd = &cobra.Command{
	Use:   "create-key NAMESPACE",
	Short: "Insert a fresh key entry under an app uid or selinux namespace",
	Long: `create-key allocates a key id, generates a random backend-instance
uuid, and inserts an Existing-lifecycle row owned by NAMESPACE. Prints
the allocated key id on success; the row carries no key material until
a blob is set separately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("namespace: %w", err)
		}
		selinux, _ := cmd.Flags().GetBool("selinux")
		super, _ := cmd.Flags().GetBool("super")

		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		scopeKind := types.ScopeApp
		if selinux {
			scopeKind = types.ScopeSelinux
		}
		kind := types.KeyTypeClient
		if super {
			kind = types.KeyTypeSuper
		}

		guard, id, err := db.CreateKeyEntry(context.Background(), types.Scope{Kind: scopeKind, Namespace: namespace}, kind, types.NewRandomUUID())
		if err != nil {
			return fmt.Errorf("create key: %w", err)
		}
		guard.Release()

		logger.Printf("create-key: allocated id %d under namespace %d", id, namespace)
		fmt.Printf("created key %d\n", id)
		return nil
	},
}

func init() {
	addStoreDirFlag(createKeyCmd)
	createKeyCmd.Flags().Bool("selinux", false, "treat NAMESPACE as a selinux policy namespace instead of an app uid")
	createKeyCmd.Flags().Bool("super", false, "create a super key instead of a client key")
	rootCmd.AddCommand(createKeyCmd)
}
