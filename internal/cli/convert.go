package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/internal/logx"
	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

type convertOptions struct {
	cfgPath string
	file    string
	tree    string
	outDir  string
	targets []string
	color   string
	stdout  bool
}

func newConvertCmd() *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Generate edge source files from an nginx config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "ngx2edge.yaml path")
	fs.StringVarP(&opts.file, "file", "f", "", "nginx config file, '-' for stdin")
	fs.StringVar(&opts.tree, "tree", "", "parsed json tree file, '-' for stdin")
	fs.StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config)")
	fs.StringSliceVarP(&opts.targets, "target", "t", nil, "targets to generate, 'all' for every target")
	fs.StringVar(&opts.color, "color", "", "color mode: auto, always or never")
	fs.BoolVar(&opts.stdout, "stdout", false, "print a single target's code to stdout instead of writing files")
	return cmd
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	cfg, err := loadToolConfig(opts.cfgPath)
	if err != nil {
		return err
	}
	outDir := strings.TrimSpace(opts.outDir)
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	colorMode := strings.TrimSpace(opts.color)
	if colorMode == "" {
		colorMode = cfg.Logging.Color
	}
	targets := resolveTargets(opts.targets, cfg.Convert.Targets)
	if opts.stdout {
		return runConvertStdout(cmd, opts, colorMode, targets)
	}
	rep := newReporter(cmd.OutOrStdout(), logx.ColorEnabled(colorMode, os.Stdout))

	res, err := runPipeline(rep, opts.file, opts.tree, targets, outDir, true)
	if err != nil {
		return err
	}
	if res.failedTargets > 0 {
		return fmt.Errorf("validation failed for %d target(s); nothing written", res.failedTargets)
	}
	return nil
}

// runConvertStdout writes one target's generated source to stdout and
// the build/validation report to stderr.
func runConvertStdout(cmd *cobra.Command, opts convertOptions, colorMode string, targets []string) error {
	if len(targets) != 1 {
		return fmt.Errorf("--stdout needs exactly one target, got %d", len(targets))
	}
	rep := newReporter(cmd.ErrOrStderr(), logx.ColorEnabled(colorMode, os.Stderr))

	tree, err := loadTree(opts.file, opts.tree)
	if err != nil {
		return err
	}
	model, buildWarns := nginxconf.Build(tree)
	rep.reportBuild(buildWarns)

	g, err := edgegen.New(targets[0], model)
	if err != nil {
		return err
	}
	res := g.Validate()
	rep.reportTarget(g.Target(), res)
	if !res.Valid {
		return fmt.Errorf("validation failed for %s", g.Target())
	}
	code, err := g.Generate()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), code)
	return err
}
