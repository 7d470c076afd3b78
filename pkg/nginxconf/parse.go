package nginxconf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxIncludeDepth = 16

// ParseString parses configuration text into a directive tree. include
// directives are kept as plain statements; use ParseFile when includes
// should be expanded from disk.
func ParseString(src string) ([]*Directive, error) {
	p := &parser{s: newScanner("", src)}
	return p.parseBlock(false)
}

// ParseFile reads and parses one configuration file, expanding include
// directives. Relative include paths resolve against the including file's
// directory; glob patterns are allowed and a glob that matches nothing is
// not an error, while a plain include of a missing file is.
func ParseFile(path string) ([]*Directive, error) {
	return parseFileAtDepth(path, 0)
}

func parseFileAtDepth(path string, depth int) ([]*Directive, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("config file path is empty")
	}
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("include depth exceeds %d at %q", maxIncludeDepth, p)
	}
	// #nosec G304 -- the config path comes from a trusted flag or include chain.
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", p, err)
	}
	pr := &parser{s: newScanner(p, string(b)), expandIncludes: true, depth: depth}
	return pr.parseBlock(false)
}

type parser struct {
	s              *scanner
	expandIncludes bool
	depth          int
}

// parseBlock consumes directives until EOF (top level) or '}' (nested).
func (p *parser) parseBlock(nested bool) ([]*Directive, error) {
	out := make([]*Directive, 0, 8)
	for {
		tok := p.s.nextNonTrivia()
		switch tok.kind {
		case tokEOF:
			if p.s.err != nil {
				return nil, p.s.err
			}
			if nested {
				return nil, p.s.errAt(tok, "unexpected end of file: missing '}'")
			}
			return out, nil
		case tokRBrace:
			if !nested {
				return nil, p.s.errAt(tok, "unexpected '}'")
			}
			return out, nil
		case tokWord:
			d, expanded, err := p.parseDirective(tok)
			if err != nil {
				return nil, err
			}
			if expanded != nil {
				out = append(out, expanded...)
				continue
			}
			out = append(out, d)
		default:
			return nil, p.s.errAt(tok, fmt.Sprintf("unexpected %q", tok.text))
		}
	}
}

// parseDirective consumes one statement starting at its name token. An
// include statement in file mode returns the expanded nodes instead of the
// directive itself.
func (p *parser) parseDirective(name token) (*Directive, []*Directive, error) {
	line, _ := p.s.lineCol(name.pos)
	d := &Directive{Name: name.text, Args: []string{}, Line: line, File: p.s.path}
	for {
		tok := p.s.nextNonTrivia()
		switch tok.kind {
		case tokWord:
			d.Args = append(d.Args, tok.text)
		case tokSemicolon:
			if p.expandIncludes && d.Name == "include" {
				expanded, err := p.expandInclude(d)
				if err != nil {
					return nil, nil, err
				}
				return nil, expanded, nil
			}
			return d, nil, nil
		case tokLBrace:
			block, err := p.parseBlock(true)
			if err != nil {
				return nil, nil, err
			}
			d.Block = block
			return d, nil, nil
		case tokRBrace:
			return nil, nil, p.s.errAt(tok, fmt.Sprintf("unexpected '}' in directive %q: missing ';'", d.Name))
		default:
			if p.s.err != nil {
				return nil, nil, p.s.err
			}
			return nil, nil, p.s.errAt(tok, fmt.Sprintf("unexpected end of file in directive %q: missing ';' or '{'", d.Name))
		}
	}
}

func (p *parser) expandInclude(d *Directive) ([]*Directive, error) {
	if len(d.Args) != 1 {
		return nil, fmt.Errorf("%s:%d: include expects exactly one path, got %d arguments", p.s.path, d.Line, len(d.Args))
	}
	raw := strings.TrimSpace(d.Args[0])
	if raw == "" {
		return nil, fmt.Errorf("%s:%d: include path is empty", p.s.path, d.Line)
	}
	pattern := raw
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(filepath.Dir(p.s.path), pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%s:%d: include pattern %q: %w", p.s.path, d.Line, raw, err)
	}
	if len(matches) == 0 {
		if strings.ContainsAny(raw, "*?[") {
			return []*Directive{}, nil
		}
		return nil, fmt.Errorf("%s:%d: include file %q not found", p.s.path, d.Line, raw)
	}
	sort.Strings(matches)
	out := make([]*Directive, 0, 8)
	for _, m := range matches {
		sub, err := parseFileAtDepth(m, p.depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}
