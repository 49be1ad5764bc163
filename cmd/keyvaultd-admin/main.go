// Command keyvaultd-admin is an operator CLI exercising the key database
// directly: open/migrate the durable file, drive the GC interface, and
// inspect row counts and grants, without a running IPC front-end.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilkey/veilkeydb/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "keyvaultd-admin",
	Short: "Operate the key database directly",
	Long: `keyvaultd-admin drives the key database's durable store without a
running IPC front-end: open and migrate persistent.sqlite, run the
garbage collector's poll loop by hand, and inspect row counts and
grants for debugging.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logDir, _ := cmd.Flags().GetString("log-dir")
		quiet, _ := cmd.Flags().GetBool("quiet")
		logger = logging.New(logging.Options{Dir: logDir, Quiet: quiet, MaxBackups: 5})
	},
}

// logger is the shared operational logger every subcommand writes its
// one-line-per-operation entries to. Set by rootCmd's PersistentPreRun
// before any subcommand's RunE runs.
var logger *log.Logger

func init() {
	rootCmd.PersistentFlags().String("log-dir", "", "directory for keyvaultd-admin.log (defaults to the current directory)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress the stderr log mirror")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
