package cli

import (
	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.Info())
		},
	}
}
