package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered processors and criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "processors:")
			for _, name := range opts.env.dispatcher.Processors() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "criteria:")
			for _, name := range opts.env.dispatcher.Criteria() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
