package cli

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/internal/logx"
	"github.com/r9s-ai/ngx2edge/internal/web"
)

type serveOptions struct {
	cfgPath string
	listen  string
	token   string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "ngx2edge.yaml path")
	fs.StringVar(&opts.listen, "listen", "", "listen address (overrides config)")
	fs.StringVar(&opts.token, "token", "", "bearer token guarding /api (overrides config)")
	return cmd
}

func runServe(opts serveOptions) error {
	cfg, err := loadToolConfig(opts.cfgPath)
	if err != nil {
		return err
	}
	listen := strings.TrimSpace(opts.listen)
	if listen == "" {
		listen = cfg.Serve.Listen
	}
	token := strings.TrimSpace(opts.token)
	if token == "" {
		token = cfg.Serve.AuthToken
	}
	return web.Run(web.Options{
		Listen:       listen,
		AuthToken:    token,
		H2C:          cfg.Serve.H2C,
		ReadTimeout:  time.Duration(cfg.Serve.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Serve.WriteTimeoutMs) * time.Millisecond,
		AccessLog:    cfg.Serve.AccessLog,
		Color:        logx.ColorEnabled(cfg.Logging.Color, os.Stdout),
	})
}
