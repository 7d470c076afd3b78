package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/internal/logx"
)

type validateOptions struct {
	cfgPath string
	file    string
	tree    string
	targets []string
	color   string
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an nginx config against the targets without writing files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "ngx2edge.yaml path")
	fs.StringVarP(&opts.file, "file", "f", "", "nginx config file, '-' for stdin")
	fs.StringVar(&opts.tree, "tree", "", "parsed json tree file, '-' for stdin")
	fs.StringSliceVarP(&opts.targets, "target", "t", nil, "targets to validate, 'all' for every target")
	fs.StringVar(&opts.color, "color", "", "color mode: auto, always or never")
	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	cfg, err := loadToolConfig(opts.cfgPath)
	if err != nil {
		return err
	}
	colorMode := strings.TrimSpace(opts.color)
	if colorMode == "" {
		colorMode = cfg.Logging.Color
	}
	rep := newReporter(cmd.OutOrStdout(), logx.ColorEnabled(colorMode, os.Stdout))
	targets := resolveTargets(opts.targets, cfg.Convert.Targets)

	res, err := runPipeline(rep, opts.file, opts.tree, targets, "", false)
	if err != nil {
		return err
	}
	if res.failedTargets > 0 {
		return fmt.Errorf("validation failed for %d target(s)", res.failedTargets)
	}
	return nil
}
