package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/internal/logx"
	"github.com/r9s-ai/ngx2edge/internal/watch"
)

type watchOptions struct {
	cfgPath string
	file    string
	outDir  string
	targets []string
	color   string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert once, then regenerate whenever the config changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "ngx2edge.yaml path")
	fs.StringVarP(&opts.file, "file", "f", "", "nginx config file to watch")
	fs.StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config)")
	fs.StringSliceVarP(&opts.targets, "target", "t", nil, "targets to generate, 'all' for every target")
	fs.StringVar(&opts.color, "color", "", "color mode: auto, always or never")
	return cmd
}

func runWatch(cmd *cobra.Command, opts watchOptions) error {
	cfg, err := loadToolConfig(opts.cfgPath)
	if err != nil {
		return err
	}
	file := strings.TrimSpace(opts.file)
	if file == "" || file == "-" {
		return errors.New("watch needs a config file path (--file)")
	}
	outDir := strings.TrimSpace(opts.outDir)
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	colorMode := strings.TrimSpace(opts.color)
	if colorMode == "" {
		colorMode = cfg.Logging.Color
	}
	rep := newReporter(cmd.OutOrStdout(), logx.ColorEnabled(colorMode, os.Stdout))
	targets := resolveTargets(opts.targets, cfg.Convert.Targets)

	runOnce := func() error {
		res, err := runPipeline(rep, file, "", targets, outDir, true)
		if err != nil {
			return err
		}
		if res.failedTargets > 0 {
			return fmt.Errorf("validation failed for %d target(s); nothing written", res.failedTargets)
		}
		return nil
	}
	if err := runOnce(); err != nil {
		log.Printf("initial convert: %v", err)
	}

	closer, err := watch.Start(watch.Options{
		Path:     file,
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		OnChange: runOnce,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
