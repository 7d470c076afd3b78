package edgegen

import (
	"sort"
	"unicode"
)

// knownTemplateVars are the runtime variables every generated target
// expands. Anything else renders empty at runtime and is reported as a
// validation warning at generation time.
var knownTemplateVars = map[string]struct{}{
	"request_uri":  {},
	"uri":          {},
	"args":         {},
	"query_string": {},
	"host":         {},
	"scheme":       {},
	"server_name":  {},
	"remote_addr":  {},
}

type templatePart struct {
	literal string
	varName string
}

// Template is a parsed $variable string (a return URL, rewrite replacement
// or header value). The original text is kept verbatim; generated code
// always embeds the raw string and expands it at runtime.
type Template struct {
	raw   string
	parts []templatePart
}

// CompileTemplate splits s into literal and variable parts. `$$` escapes a
// literal dollar and a `$` not followed by a name stays literal, so
// compiling never fails.
func CompileTemplate(s string) Template {
	t := Template{raw: s}
	var lit []byte

	flushLiteral := func() {
		if len(lit) == 0 {
			return
		}
		t.parts = append(t.parts, templatePart{literal: string(lit)})
		lit = lit[:0]
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '$' {
			lit = append(lit, ch)
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			lit = append(lit, '$')
			i++
			continue
		}
		j := i + 1
		for j < len(s) {
			r := rune(s[j])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			j++
		}
		if j == i+1 {
			lit = append(lit, '$')
			continue
		}
		flushLiteral()
		t.parts = append(t.parts, templatePart{varName: s[i+1 : j]})
		i = j - 1
	}
	flushLiteral()
	return t
}

// Raw returns the original template text.
func (t Template) Raw() string { return t.raw }

// VarNames returns the variable names in order of appearance, capture
// references included, duplicates kept.
func (t Template) VarNames() []string {
	out := make([]string, 0, len(t.parts))
	for _, p := range t.parts {
		if p.varName != "" {
			out = append(out, p.varName)
		}
	}
	return out
}

// HasVars reports whether the template references any runtime variable.
// Capture references ($1..$9) do not count; they are substituted by the
// regex replace, not by the variable expander.
func (t Template) HasVars() bool {
	for _, p := range t.parts {
		if p.varName != "" && !isCaptureRef(p.varName) {
			return true
		}
	}
	return false
}

// UnknownVars returns the referenced variable names no target can expand,
// deduplicated, in order of first appearance.
func (t Template) UnknownVars() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, p := range t.parts {
		name := p.varName
		if name == "" || isCaptureRef(name) {
			continue
		}
		if _, ok := knownTemplateVars[name]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func isCaptureRef(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

// KnownVariables returns the supported variable names, sorted.
func KnownVariables() []string {
	out := make([]string, 0, len(knownTemplateVars))
	for k := range knownTemplateVars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
