package edgegen

import (
	"reflect"
	"testing"
)

func TestCompileTemplateLiteral(t *testing.T) {
	tpl := CompileTemplate("/static/index.html")
	if tpl.HasVars() {
		t.Fatalf("literal template reported variables")
	}
	if got := tpl.Raw(); got != "/static/index.html" {
		t.Fatalf("Raw() = %q", got)
	}
	if names := tpl.VarNames(); len(names) != 0 {
		t.Fatalf("VarNames() = %v, want none", names)
	}
}

func TestCompileTemplateVars(t *testing.T) {
	tpl := CompileTemplate("https://new.example.com$request_uri")
	if !tpl.HasVars() {
		t.Fatalf("template with $request_uri reported no variables")
	}
	if got := tpl.VarNames(); !reflect.DeepEqual(got, []string{"request_uri"}) {
		t.Fatalf("VarNames() = %v", got)
	}
}

func TestCompileTemplateMultipleVars(t *testing.T) {
	tpl := CompileTemplate("$scheme://$host$request_uri")
	want := []string{"scheme", "host", "request_uri"}
	if got := tpl.VarNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("VarNames() = %v, want %v", got, want)
	}
}

func TestCompileTemplateDollarEscape(t *testing.T) {
	tpl := CompileTemplate("price is $$5")
	if tpl.HasVars() {
		t.Fatalf("escaped dollar reported as variable")
	}
}

func TestCompileTemplateBareDollar(t *testing.T) {
	// A dollar not followed by a name character stays literal.
	for _, src := range []string{"100$", "a$ b", "$-x"} {
		if CompileTemplate(src).HasVars() {
			t.Fatalf("%q reported variables", src)
		}
	}
}

func TestCompileTemplateCaptureRefs(t *testing.T) {
	tpl := CompileTemplate("/items/$1/details")
	if tpl.HasVars() {
		t.Fatalf("capture reference counted as variable")
	}
	if got := tpl.VarNames(); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("VarNames() = %v", got)
	}
	if unknown := tpl.UnknownVars(); len(unknown) != 0 {
		t.Fatalf("UnknownVars() = %v, want none", unknown)
	}
}

func TestTemplateUnknownVars(t *testing.T) {
	tpl := CompileTemplate("$request_uri $upstream_cache_status $upstream_cache_status $2")
	if got := tpl.UnknownVars(); !reflect.DeepEqual(got, []string{"upstream_cache_status"}) {
		t.Fatalf("UnknownVars() = %v", got)
	}
}

func TestKnownVariablesSorted(t *testing.T) {
	names := KnownVariables()
	if len(names) == 0 {
		t.Fatalf("no known variables")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("KnownVariables() not sorted: %v", names)
		}
	}
	found := false
	for _, n := range names {
		if n == "request_uri" {
			found = true
		}
	}
	if !found {
		t.Fatalf("request_uri missing from %v", names)
	}
}
