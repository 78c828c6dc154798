// Package cli holds the ystore commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"Ystore/internal/logger"
)

type rootOptions struct {
	debug bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "ystore",
		Short:        "Model-driven storage gateway over memory, SQL and Redis engines",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(opts.debug)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	cmd.AddCommand(
		newServeCmd(),
		newSchemaCmd(),
		newParseCmd(),
		newMigrateCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
