package edgegen

import (
	"fmt"
	"strings"
)

// codeBuf assembles generated source text line by line with two-space
// indentation.
type codeBuf struct {
	sb     strings.Builder
	indent int
}

func (c *codeBuf) in() { c.indent++ }

func (c *codeBuf) out() {
	if c.indent > 0 {
		c.indent--
	}
}

// line writes one indented line verbatim. An empty string writes a blank
// line without trailing indentation.
func (c *codeBuf) line(s string) {
	if s == "" {
		c.sb.WriteByte('\n')
		return
	}
	for i := 0; i < c.indent; i++ {
		c.sb.WriteString("  ")
	}
	c.sb.WriteString(s)
	c.sb.WriteByte('\n')
}

func (c *codeBuf) linef(format string, args ...any) {
	c.line(fmt.Sprintf(format, args...))
}

func (c *codeBuf) blank() { c.line("") }

func (c *codeBuf) String() string { return c.sb.String() }

// jsStr renders s as a single-quoted JS string literal.
func jsStr(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// jsTemplateExpr renders a templated string as a JS expression: a plain
// literal when no runtime variable occurs, else a call to the generated
// expandVariables helper.
func jsTemplateExpr(s, requestExpr string) string {
	if CompileTemplate(s).HasVars() {
		return "expandVariables(" + jsStr(s) + ", " + requestExpr + ")"
	}
	return jsStr(s)
}

// jsHeaderObject renders ordered header pairs as a JS object literal with
// raw template values; the receiving runtime helper expands them.
func jsHeaderObject(pairs [][2]string) string {
	if len(pairs) == 0 {
		return "{}"
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = jsStr(p[0]) + ": " + jsStr(p[1])
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// jsHeaderObjectExpanded is jsHeaderObject with values expanded at the
// call site, for targets whose helpers take finished values.
func jsHeaderObjectExpanded(pairs [][2]string, requestExpr string) string {
	if len(pairs) == 0 {
		return "{}"
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = jsStr(p[0]) + ": " + jsTemplateExpr(p[1], requestExpr)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// jsRegex renders a pattern as a JS regex literal with the given flags.
// The pattern passes through untranslated except that bare slashes are
// escaped so the literal stays well formed.
func jsRegex(pattern, flags string) string {
	if pattern == "" {
		pattern = "(?:)"
	}
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			b.WriteRune(r)
			escaped = true
		case '/':
			b.WriteString(`\/`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('/')
	b.WriteString(flags)
	return b.String()
}
