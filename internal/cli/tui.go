package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/r9s-ai/ngx2edge/internal/fsutil"
	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

const tuiListWidth = 34

var (
	tuiPreviewPane = lipgloss.NewStyle().PaddingLeft(2)
	tuiStatusBar   = lipgloss.NewStyle().Faint(true)
)

type tuiOptions struct {
	cfgPath string
	file    string
	tree    string
	outDir  string
}

func newTuiCmd() *cobra.Command {
	var opts tuiOptions
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse targets and generated output interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTui(opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "ngx2edge.yaml path")
	fs.StringVarP(&opts.file, "file", "f", "", "nginx config file")
	fs.StringVar(&opts.tree, "tree", "", "parsed json tree file")
	fs.StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config)")
	return cmd
}

func runTui(opts tuiOptions) error {
	cfg, err := loadToolConfig(opts.cfgPath)
	if err != nil {
		return err
	}
	outDir := strings.TrimSpace(opts.outDir)
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	tree, err := loadTree(opts.file, opts.tree)
	if err != nil {
		return err
	}
	model, buildWarns := nginxconf.Build(tree)

	m := newTuiModel(model, buildWarns, outDir)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// targetEntry is one list row: a target plus its validation outcome and,
// when valid, the generated source.
type targetEntry struct {
	info   edgegen.TargetInfo
	result edgegen.ValidationResult
	code   string
}

func (e targetEntry) Title() string { return e.info.Name }

func (e targetEntry) Description() string {
	if !e.result.Valid {
		return fmt.Sprintf("%d error(s)", len(e.result.Errors))
	}
	if n := len(e.result.Warnings); n > 0 {
		return fmt.Sprintf("ok, %d warning(s)", n)
	}
	return "ok"
}

func (e targetEntry) FilterValue() string { return e.info.Name }

type tuiModel struct {
	list    list.Model
	preview viewport.Model
	outDir  string
	status  string
	ready   bool
}

func newTuiModel(cfg *nginxconf.Config, buildWarns []nginxconf.BuildWarning, outDir string) tuiModel {
	items := make([]list.Item, 0, len(edgegen.TargetNames()))
	for _, info := range edgegen.Targets() {
		g, err := edgegen.New(info.Name, cfg)
		if err != nil {
			continue
		}
		e := targetEntry{info: info, result: g.Validate()}
		if e.result.Valid {
			if code, genErr := g.Generate(); genErr == nil {
				e.code = code
			}
		}
		items = append(items, e)
	}

	l := list.New(items, list.NewDefaultDelegate(), tuiListWidth, 20)
	l.Title = "targets"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	status := "enter: write file  q: quit"
	if n := len(buildWarns); n > 0 {
		status = fmt.Sprintf("model built with %d warning(s)  %s", n, status)
	}
	return tuiModel{
		list:   l,
		outDir: outDir,
		status: status,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		contentHeight := msg.Height - 2
		if contentHeight < 3 {
			contentHeight = 3
		}
		previewWidth := msg.Width - tuiListWidth - 4
		if previewWidth < 10 {
			previewWidth = 10
		}
		m.list.SetSize(tuiListWidth, contentHeight)
		if !m.ready {
			m.preview = viewport.New(previewWidth, contentHeight)
			m.ready = true
		} else {
			m.preview.Width = previewWidth
			m.preview.Height = contentHeight
		}
		m.refreshPreview()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.status = m.writeSelected()
			return m, nil
		case "pgup", "pgdown", "home", "end", "u", "d":
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		default:
			before := m.list.Index()
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			if m.list.Index() != before {
				m.refreshPreview()
			}
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m tuiModel) View() string {
	if !m.ready {
		return "loading..."
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), tuiPreviewPane.Render(m.preview.View()))
	return body + "\n" + tuiStatusBar.Render(m.status)
}

func (m tuiModel) selectedEntry() (targetEntry, bool) {
	it := m.list.SelectedItem()
	if it == nil {
		return targetEntry{}, false
	}
	e, ok := it.(targetEntry)
	return e, ok
}

func (m *tuiModel) refreshPreview() {
	if !m.ready {
		return
	}
	e, ok := m.selectedEntry()
	if !ok {
		m.preview.SetContent("no targets")
		return
	}
	m.preview.SetContent(previewFor(e))
	m.preview.GotoTop()
}

func (m tuiModel) writeSelected() string {
	e, ok := m.selectedEntry()
	if !ok {
		return "nothing selected"
	}
	if !e.result.Valid {
		return e.info.Name + " has validation errors; not written"
	}
	path := filepath.Join(m.outDir, e.info.Name+e.info.Extension)
	if err := fsutil.WriteAtomic(path, []byte(e.code)); err != nil {
		return "write failed: " + err.Error()
	}
	return "wrote " + path
}

func previewFor(e targetEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s (%s)\n\n", e.info.Name, e.info.Extension, e.info.Description)
	for _, err := range e.result.Errors {
		b.WriteString("error: " + err + "\n")
	}
	for _, w := range e.result.Warnings {
		b.WriteString("warning: " + w + "\n")
	}
	if len(e.result.Errors) > 0 || len(e.result.Warnings) > 0 {
		b.WriteString("\n")
	}
	if e.code != "" {
		b.WriteString(e.code)
	}
	return b.String()
}
