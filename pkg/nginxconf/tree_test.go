package nginxconf

import (
	"strings"
	"testing"
)

func TestDecodeTreeBareArray(t *testing.T) {
	in := `[
  {"directive": "server", "args": [], "line": 1, "block": [
    {"directive": "listen", "args": ["80"], "line": 2},
    {"directive": "server_name", "args": ["example.com"], "line": 3}
  ]}
]`
	tree, err := DecodeTree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "server" {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	if !tree[0].IsBlock() || len(tree[0].Block) != 2 {
		t.Fatalf("expected block with 2 children, got %+v", tree[0])
	}
	if tree[0].Block[0].Arg(0) != "80" {
		t.Fatalf("unexpected listen arg: %q", tree[0].Block[0].Arg(0))
	}
}

func TestDecodeTreeParserPayload(t *testing.T) {
	in := `{
  "status": "ok",
  "errors": [],
  "config": [
    {"file": "a.conf", "status": "ok", "errors": [], "parsed": [
      {"directive": "gzip", "args": ["on"], "line": 1}
    ]},
    {"file": "b.conf", "status": "ok", "errors": [], "parsed": [
      {"directive": "sendfile", "args": ["on"], "line": 1}
    ]}
  ]
}`
	tree, err := DecodeTree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected parsed sections concatenated, got %d", len(tree))
	}
	if tree[0].Name != "gzip" || tree[1].Name != "sendfile" {
		t.Fatalf("unexpected order: %q %q", tree[0].Name, tree[1].Name)
	}
}

func TestDecodeTreePayloadErrors(t *testing.T) {
	in := `{
  "status": "failed",
  "errors": [{"file": "nginx.conf", "line": 7, "error": "unexpected end of file"}],
  "config": [
    {"file": "nginx.conf", "status": "failed", "errors": [{"line": 7, "error": "unexpected end of file"}], "parsed": []}
  ]
}`
	_, err := DecodeTree(strings.NewReader(in))
	if err == nil {
		t.Fatalf("expected payload error")
	}
	if !strings.Contains(err.Error(), "nginx.conf:7: unexpected end of file") {
		t.Fatalf("error should carry file and line, got %q", err.Error())
	}
}

func TestDecodeTreeRejectsGarbage(t *testing.T) {
	if _, err := DecodeTree(strings.NewReader("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodeTree(strings.NewReader("   ")); err == nil {
		t.Fatalf("expected empty input error")
	}
}

func TestDecodeTreeEmptyArray(t *testing.T) {
	tree, err := DecodeTree(strings.NewReader("[]"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("expected empty tree, got %d", len(tree))
	}
}

func TestDirectiveArgOutOfRange(t *testing.T) {
	d := &Directive{Name: "listen", Args: []string{"80"}}
	if d.Arg(0) != "80" || d.Arg(1) != "" || d.Arg(-1) != "" {
		t.Fatalf("Arg should return empty string out of range")
	}
	if d.IsBlock() {
		t.Fatalf("directive without block should not be a block")
	}
	d.Block = []*Directive{}
	if !d.IsBlock() {
		t.Fatalf("empty block is still a block")
	}
}
