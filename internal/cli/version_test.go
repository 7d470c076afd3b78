package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	sharedver "github.com/r9s-ai/ngx2edge/internal/version"
)

func TestVersionCmdOutput(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute version cmd: %v", err)
	}

	got := strings.TrimSpace(buf.String())
	want := strings.TrimSpace(fmt.Sprint(sharedver.Get()))
	if got != want {
		t.Fatalf("version output=%q want=%q", got, want)
	}
}

func TestRootCmdHasSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"convert", "validate", "targets", "directives", "serve", "watch", "tui", "version"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Fatalf("find %s subcommand: %v", name, err)
		}
	}
}
