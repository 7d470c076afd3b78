package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// reporter renders build and validation outcomes for terminal output.
type reporter struct {
	out   io.Writer
	color bool

	okStyle   lipgloss.Style
	errStyle  lipgloss.Style
	warnStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

func newReporter(out io.Writer, color bool) *reporter {
	return &reporter{
		out:       out,
		color:     color,
		okStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warnStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		dimStyle:  lipgloss.NewStyle().Faint(true),
	}
}

func (r *reporter) render(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *reporter) reportBuild(warns []nginxconf.BuildWarning) {
	if len(warns) == 0 {
		return
	}
	fmt.Fprintln(r.out, r.render(r.warnStyle, fmt.Sprintf("model: %d warning(s)", len(warns))))
	for _, w := range warns {
		fmt.Fprintf(r.out, "  %s\n", r.render(r.dimStyle, w.String()))
	}
}

func (r *reporter) reportTarget(name string, res edgegen.ValidationResult) {
	switch {
	case !res.Valid:
		fmt.Fprintf(r.out, "%s: %s\n", name, r.render(r.errStyle, fmt.Sprintf("%d error(s)", len(res.Errors))))
	case len(res.Warnings) > 0:
		fmt.Fprintf(r.out, "%s: %s, %s\n", name,
			r.render(r.okStyle, "ok"),
			r.render(r.warnStyle, fmt.Sprintf("%d warning(s)", len(res.Warnings))))
	default:
		fmt.Fprintf(r.out, "%s: %s\n", name, r.render(r.okStyle, "ok"))
	}
	for _, e := range res.Errors {
		fmt.Fprintf(r.out, "  %s %s\n", r.render(r.errStyle, "error:"), e)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(r.out, "  %s %s\n", r.render(r.warnStyle, "warning:"), w)
	}
}

func (r *reporter) reportWritten(path string) {
	fmt.Fprintf(r.out, "%s %s\n", r.render(r.okStyle, "wrote"), path)
}
