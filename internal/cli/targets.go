package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the available generation targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, t := range edgegen.Targets() {
				if _, err := fmt.Fprintf(out, "%-12s %-5s %s\n", t.Name, t.Extension, t.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
