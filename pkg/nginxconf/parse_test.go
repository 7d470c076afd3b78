package nginxconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// #nosec G306 -- test data file.
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseStringBasic(t *testing.T) {
	tree, err := ParseString(`worker_processes 4;
http {
    server {
        listen 80;
        server_name example.com www.example.com;
        location / {
            proxy_pass http://backend:3000;
        }
    }
}
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected 2 top-level directives, got %d", len(tree))
	}
	if tree[0].Name != "worker_processes" || tree[0].Arg(0) != "4" {
		t.Fatalf("unexpected first directive: %+v", tree[0])
	}
	if tree[0].Line != 1 {
		t.Fatalf("expected line 1, got %d", tree[0].Line)
	}
	httpBlock := tree[1]
	if httpBlock.Name != "http" || !httpBlock.IsBlock() {
		t.Fatalf("expected http block, got %+v", httpBlock)
	}
	if len(httpBlock.Block) != 1 || httpBlock.Block[0].Name != "server" {
		t.Fatalf("expected one server inside http")
	}
	srv := httpBlock.Block[0]
	if len(srv.Block) != 3 {
		t.Fatalf("expected 3 directives inside server, got %d", len(srv.Block))
	}
	names := srv.Block[1]
	if names.Name != "server_name" || len(names.Args) != 2 || names.Args[1] != "www.example.com" {
		t.Fatalf("unexpected server_name: %+v", names)
	}
	loc := srv.Block[2]
	if loc.Name != "location" || loc.Arg(0) != "/" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if loc.Block[0].Name != "proxy_pass" || loc.Block[0].Arg(0) != "http://backend:3000" {
		t.Fatalf("unexpected proxy_pass: %+v", loc.Block[0])
	}
}

func TestParseStringQuotedArgs(t *testing.T) {
	tree, err := ParseString(`add_header Cache-Control "public, max-age=3600";
log_format main "ip=\"$remote_addr\"";
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tree[0].Arg(1); got != "public, max-age=3600" {
		t.Fatalf("quoted arg: got %q", got)
	}
	if got := tree[1].Arg(1); got != `ip="$remote_addr"` {
		t.Fatalf("escaped quote: got %q", got)
	}
}

func TestParseStringComments(t *testing.T) {
	tree, err := ParseString(`# leading comment
gzip on; # trailing comment
# only a comment line
sendfile on;
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected comments skipped, got %d directives", len(tree))
	}
	if tree[0].Name != "gzip" || tree[1].Name != "sendfile" {
		t.Fatalf("unexpected directives: %q %q", tree[0].Name, tree[1].Name)
	}
	if tree[1].Line != 4 {
		t.Fatalf("expected sendfile on line 4, got %d", tree[1].Line)
	}
}

func TestParseStringEmptyInput(t *testing.T) {
	tree, err := ParseString("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("expected empty tree, got %d directives", len(tree))
	}
}

func TestParseStringEmptyBlock(t *testing.T) {
	tree, err := ParseString("events {}\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 1 || !tree[0].IsBlock() || len(tree[0].Block) != 0 {
		t.Fatalf("expected one empty block, got %+v", tree)
	}
}

func TestParseStringErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{name: "missing semicolon", src: "gzip on\n", want: "missing ';'"},
		{name: "missing close brace", src: "server {\nlisten 80;\n", want: "missing '}'"},
		{name: "stray close brace", src: "gzip on;\n}\n", want: "unexpected '}'"},
		{name: "brace closes directive", src: "server {\nlisten 80\n}\n", want: "missing ';'"},
		{name: "unterminated quote", src: "log_format main \"abc\n", want: "unterminated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.src)
			if err == nil {
				t.Fatalf("expected error for %q", tc.src)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
			if !strings.HasPrefix(err.Error(), "<input>:") {
				t.Fatalf("error %q should carry a position prefix", err.Error())
			}
		})
	}
}

func TestParseStringErrorPosition(t *testing.T) {
	_, err := ParseString("gzip on;\n}\n")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.HasPrefix(err.Error(), "<input>:2:1:") {
		t.Fatalf("expected position 2:1, got %q", err.Error())
	}
}

func TestParseStringKeepsInclude(t *testing.T) {
	tree, err := ParseString("include conf.d/*.conf;\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "include" || tree[0].Arg(0) != "conf.d/*.conf" {
		t.Fatalf("include should stay verbatim in string mode: %+v", tree)
	}
}

func TestParseFileExpandsInclude(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, filepath.Join(dir, "nginx.conf"), `gzip on;
include conf.d/*.conf;
sendfile on;
`)
	writeConfFile(t, filepath.Join(dir, "conf.d", "b.conf"), "tcp_nopush on;\n")
	writeConfFile(t, filepath.Join(dir, "conf.d", "a.conf"), "tcp_nodelay on;\n")

	tree, err := ParseFile(filepath.Join(dir, "nginx.conf"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	names := make([]string, 0, len(tree))
	for _, d := range tree {
		names = append(names, d.Name)
	}
	want := []string{"gzip", "tcp_nodelay", "tcp_nopush", "sendfile"}
	if len(names) != len(want) {
		t.Fatalf("expected %d directives, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected directives %v, got %v", want, names)
		}
	}
	if tree[1].File == "" || !strings.HasSuffix(tree[1].File, "a.conf") {
		t.Fatalf("included directive should record its own file, got %q", tree[1].File)
	}
}

func TestParseFileIncludeRelativeToIncluder(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, filepath.Join(dir, "nginx.conf"), "include sub/outer.conf;\n")
	writeConfFile(t, filepath.Join(dir, "sub", "outer.conf"), "include inner.conf;\n")
	writeConfFile(t, filepath.Join(dir, "sub", "inner.conf"), "gzip on;\n")

	tree, err := ParseFile(filepath.Join(dir, "nginx.conf"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "gzip" {
		t.Fatalf("nested include should resolve against the includer, got %+v", tree)
	}
}

func TestParseFileMissingInclude(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, filepath.Join(dir, "nginx.conf"), "include missing.conf;\n")

	_, err := ParseFile(filepath.Join(dir, "nginx.conf"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing include error, got %v", err)
	}
}

func TestParseFileEmptyGlobIsFine(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, filepath.Join(dir, "nginx.conf"), "include conf.d/*.conf;\ngzip on;\n")

	tree, err := ParseFile(filepath.Join(dir, "nginx.conf"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "gzip" {
		t.Fatalf("empty glob should expand to nothing, got %+v", tree)
	}
}

func TestParseFileIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, filepath.Join(dir, "a.conf"), "include b.conf;\n")
	writeConfFile(t, filepath.Join(dir, "b.conf"), "include a.conf;\n")

	_, err := ParseFile(filepath.Join(dir, "a.conf"))
	if err == nil || !strings.Contains(err.Error(), "include depth") {
		t.Fatalf("expected include depth error, got %v", err)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.conf"))
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
