// Package version exposes build metadata stamped in via -ldflags.
package version

import (
	"runtime"
	"strings"
)

// Overridden at build time:
//
//	go build -ldflags "-X github.com/r9s-ai/ngx2edge/internal/version.version=v1.2.3"
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Get returns a single-line version string for CLI output.
func Get() string {
	parts := []string{"ngx2edge", version}
	if commit != "" {
		parts = append(parts, "commit "+commit)
	}
	if date != "" {
		parts = append(parts, "built "+date)
	}
	parts = append(parts, runtime.Version())
	return strings.Join(parts, " ")
}

// Short returns just the bare version, e.g. "dev" or "v1.2.3".
func Short() string {
	return version
}
