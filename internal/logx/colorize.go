// Package logx renders access log lines for the HTTP API and handles
// terminal color detection.
package logx

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// ColorEnabled resolves a color mode ("auto", "always", "never") against
// the output file. Auto requires a terminal and an unset NO_COLOR.
func ColorEnabled(mode string, f *os.File) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ColorizeStatusWith renders a status code, wrapped in the ANSI color of
// its class when color is on.
func ColorizeStatusWith(status int, color bool) string {
	s := strconv.Itoa(status)
	if !color {
		return s
	}
	return statusColor(status) + s + ansiReset
}

func statusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return ansiGreen
	case status >= 300 && status < 400:
		return ansiCyan
	case status >= 400 && status < 500:
		return ansiYellow
	default:
		return ansiRed
	}
}
