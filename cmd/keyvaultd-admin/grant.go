package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/types"
)

var grantCmd = &cobra.Command{
	Use:   "grant KEY_ID GRANTEE_UID RIGHTS",
	Short: "Grant a uid a set of rights over a client key",
	Long: `grant resolves KEY_ID as a plain key-id descriptor, checks nothing
(the admin CLI always allows), and inserts or updates the grant row for
GRANTEE_UID. RIGHTS is a comma-separated list drawn from: use, get-info,
delete, grant, rebind, manage-access.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("key id: %w", err)
		}
		grantee, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("grantee uid: %w", err)
		}
		rights, err := parseRights(args[2])
		if err != nil {
			return err
		}

		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		descriptor := types.KeyDescriptor{Tag: types.DescriptorKeyID, Namespace: keyID}
		result, err := db.Grant(context.Background(), descriptor, 0, grantee, rights, allowAnything)
		if err != nil {
			return fmt.Errorf("grant: %w", err)
		}
		fmt.Printf("grant descriptor: namespace=%d\n", result.Namespace)
		return nil
	},
}

var ungrantCmd = &cobra.Command{
	Use:   "ungrant KEY_ID GRANTEE_UID",
	Short: "Revoke a uid's grant over a client key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("key id: %w", err)
		}
		grantee, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("grantee uid: %w", err)
		}

		db, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		descriptor := types.KeyDescriptor{Tag: types.DescriptorKeyID, Namespace: keyID}
		if err := db.Ungrant(context.Background(), descriptor, 0, grantee, allowAnything); err != nil {
			return fmt.Errorf("ungrant: %w", err)
		}
		fmt.Println("ungranted")
		return nil
	},
}

func allowAnything(types.KeyDescriptor, *types.AccessRights) error { return nil }

func parseRights(csv string) (types.AccessRights, error) {
	var rights types.AccessRights
	for _, tok := range strings.Split(csv, ",") {
		switch strings.TrimSpace(tok) {
		case "use":
			rights |= types.RightUse
		case "get-info":
			rights |= types.RightGetInfo
		case "delete":
			rights |= types.RightDelete
		case "grant":
			rights |= types.RightGrant
		case "rebind":
			rights |= types.RightRebind
		case "manage-access":
			rights |= types.RightManageAccess
		default:
			return 0, fmt.Errorf("unknown right %q", tok)
		}
	}
	return rights, nil
}

func init() {
	addStoreDirFlag(grantCmd)
	addStoreDirFlag(ungrantCmd)
	rootCmd.AddCommand(grantCmd, ungrantCmd)
}
