package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"Ystore/internal/filter"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <filter>",
		Short: "Parse filter text and print its JSON tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := filter.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		},
	}
}
