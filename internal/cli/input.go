package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/config"
	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

const defaultToolConfig = "ngx2edge.yaml"

// loadToolConfig reads the yaml tool config. An empty path falls back to
// ngx2edge.yaml in the working directory when present, else to defaults.
func loadToolConfig(path string) (*config.Config, error) {
	p := strings.TrimSpace(path)
	if p != "" {
		return config.Load(p)
	}
	if _, err := os.Stat(defaultToolConfig); err == nil {
		return config.Load(defaultToolConfig)
	}
	return config.Default()
}

// loadTree parses the conversion input. Exactly one of file and treePath
// must be set; "-" reads the respective format from stdin.
func loadTree(file, treePath string) ([]*nginxconf.Directive, error) {
	file = strings.TrimSpace(file)
	treePath = strings.TrimSpace(treePath)
	switch {
	case file != "" && treePath != "":
		return nil, errors.New("use either --file or --tree, not both")
	case file == "" && treePath == "":
		return nil, errors.New("an input is required: --file <nginx.conf> or --tree <tree.json>")
	case file == "-":
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return nginxconf.ParseString(string(src))
	case file != "":
		return nginxconf.ParseFile(file)
	case treePath == "-":
		return nginxconf.DecodeTree(os.Stdin)
	default:
		f, err := os.Open(treePath) // #nosec G304 -- path comes from a trusted flag.
		if err != nil {
			return nil, fmt.Errorf("open tree file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return nginxconf.DecodeTree(f)
	}
}

// resolveTargets merges flag targets over config targets and expands "all".
// Names are lowercased and deduped; an empty merge means every target.
func resolveTargets(flagTargets, cfgTargets []string) []string {
	src := flagTargets
	if len(src) == 0 {
		src = cfgTargets
	}
	seen := make(map[string]bool, len(src))
	out := make([]string, 0, len(src))
	for _, t := range src {
		v := strings.ToLower(strings.TrimSpace(t))
		if v == "" || seen[v] {
			continue
		}
		if v == "all" {
			return edgegen.TargetNames()
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return edgegen.TargetNames()
	}
	return out
}
