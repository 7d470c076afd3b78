// Package cli implements the ngx2edge command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ngx2edge",
		Short:         "Convert nginx configuration into edge handler source",
		Long:          "ngx2edge turns nginx-style configuration into deployable source for edge targets:\na fetch-event worker, an HTTP middleware, a CDN edge hook and an embeddable runtime.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newConvertCmd(),
		newValidateCmd(),
		newTargetsCmd(),
		newDirectivesCmd(),
		newServeCmd(),
		newWatchCmd(),
		newTuiCmd(),
		newVersionCmd(),
	)
	return cmd
}
