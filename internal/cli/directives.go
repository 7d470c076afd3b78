package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

func newDirectivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directives [name]",
		Short: "Show the supported nginx directives",
		Long:  "Without arguments, lists every recognized directive grouped by context.\nWith a name, prints that directive's reference entry.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, context := range nginxconf.DirectiveContexts() {
					fmt.Fprintf(out, "%s:\n", context)
					for _, name := range nginxconf.DirectivesByContext(context) {
						fmt.Fprintf(out, "  %s\n", name)
					}
				}
				return nil
			}
			summary, ok := nginxconf.DirectiveSummary(args[0])
			if !ok {
				return fmt.Errorf("unknown directive %q (run 'ngx2edge directives' for the list)", args[0])
			}
			fmt.Fprintln(out, summary)
			return nil
		},
	}
}
