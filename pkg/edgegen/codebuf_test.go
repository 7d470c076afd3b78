package edgegen

import "testing"

func TestCodeBufIndent(t *testing.T) {
	c := &codeBuf{}
	c.line("function f() {")
	c.in()
	c.linef("return %d;", 42)
	c.out()
	c.line("}")
	want := "function f() {\n  return 42;\n}\n"
	if got := c.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCodeBufBlankLine(t *testing.T) {
	c := &codeBuf{}
	c.in()
	c.line("a")
	c.blank()
	c.line("b")
	if got := c.String(); got != "  a\n\n  b\n" {
		t.Fatalf("got %q", got)
	}
}

func TestJsStr(t *testing.T) {
	cases := []struct{ in, want string }{
		{"abc", "'abc'"},
		{"it's", `'it\'s'`},
		{`a\b`, `'a\\b'`},
		{"a\nb", `'a\nb'`},
		{"a\tb", `'a\tb'`},
		{"a\rb", `'a\rb'`},
		{"\x01", `'\x01'`},
		{"", "''"},
	}
	for _, tc := range cases {
		if got := jsStr(tc.in); got != tc.want {
			t.Errorf("jsStr(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestJsRegex(t *testing.T) {
	cases := []struct{ pattern, flags, want string }{
		{"^/old$", "", `/^\/old$/`},
		{`a\/b`, "", `/a\/b/`},
		{`\.(jpg|png)$`, "i", `/\.(jpg|png)$/i`},
		{"", "", "/(?:)/"},
	}
	for _, tc := range cases {
		if got := jsRegex(tc.pattern, tc.flags); got != tc.want {
			t.Errorf("jsRegex(%q, %q) = %s, want %s", tc.pattern, tc.flags, got, tc.want)
		}
	}
}

func TestJsTemplateExpr(t *testing.T) {
	if got := jsTemplateExpr("/plain", "request"); got != "'/plain'" {
		t.Fatalf("literal: %s", got)
	}
	if got := jsTemplateExpr("https://x$request_uri", "request"); got != "expandVariables('https://x$request_uri', request)" {
		t.Fatalf("templated: %s", got)
	}
	// Capture references alone need no runtime expansion.
	if got := jsTemplateExpr("/new/$1", "request"); got != "'/new/$1'" {
		t.Fatalf("capture ref: %s", got)
	}
}

func TestJsHeaderObject(t *testing.T) {
	if got := jsHeaderObject(nil); got != "{}" {
		t.Fatalf("empty: %s", got)
	}
	pairs := [][2]string{{"X-Real-IP", "$remote_addr"}, {"Host", "$host"}}
	want := "{ 'X-Real-IP': '$remote_addr', 'Host': '$host' }"
	if got := jsHeaderObject(pairs); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestJsHeaderObjectExpanded(t *testing.T) {
	pairs := [][2]string{{"X-Real-IP", "$remote_addr"}, {"X-Static", "yes"}}
	want := "{ 'X-Real-IP': expandVariables('$remote_addr', request), 'X-Static': 'yes' }"
	if got := jsHeaderObjectExpanded(pairs, "request"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
