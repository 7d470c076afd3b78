package nginxconf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Directive is one parsed configuration statement: a name, its arguments
// and, for container directives, a nested block. JSON field names follow the
// crossplane payload schema so trees produced by the external parser decode
// without translation.
type Directive struct {
	Name  string       `json:"directive"`
	Args  []string     `json:"args"`
	Line  int          `json:"line,omitempty"`
	File  string       `json:"file,omitempty"`
	Block []*Directive `json:"block,omitempty"`
}

// IsBlock reports whether the directive is a container in the source
// grammar. A container keeps a non-nil (possibly empty) Block.
func (d *Directive) IsBlock() bool {
	return d != nil && d.Block != nil
}

// Arg returns the i-th argument, or "" when absent.
func (d *Directive) Arg(i int) string {
	if d == nil || i < 0 || i >= len(d.Args) {
		return ""
	}
	return d.Args[i]
}

type payloadError struct {
	File  string `json:"file,omitempty"`
	Line  *int   `json:"line,omitempty"`
	Error string `json:"error"`
}

type payloadConfig struct {
	File   string         `json:"file,omitempty"`
	Status string         `json:"status,omitempty"`
	Errors []payloadError `json:"errors,omitempty"`
	Parsed []*Directive   `json:"parsed"`
}

type parserPayload struct {
	Status string          `json:"status,omitempty"`
	Errors []payloadError  `json:"errors,omitempty"`
	Config []payloadConfig `json:"config"`
}

// DecodeTree reads a directive tree from JSON. Both interchange shapes are
// accepted: a bare array of directive nodes, or a full parser payload object
// whose config entries carry the parsed trees (the config entries are
// concatenated in order). Errors recorded inside a payload fail the decode.
func DecodeTree(r io.Reader) ([]*Directive, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("tree input is empty")
	}
	if strings.HasPrefix(trimmed, "[") {
		var tree []*Directive
		if err := json.Unmarshal([]byte(trimmed), &tree); err != nil {
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		return tree, nil
	}
	var p parserPayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, fmt.Errorf("decode parser payload: %w", err)
	}
	if msg := payloadErrorMessage(p); msg != "" {
		return nil, fmt.Errorf("parser payload reported errors: %s", msg)
	}
	out := make([]*Directive, 0, 8)
	for _, c := range p.Config {
		out = append(out, c.Parsed...)
	}
	return out, nil
}

func payloadErrorMessage(p parserPayload) string {
	msgs := make([]string, 0, 2)
	for _, e := range p.Errors {
		msgs = append(msgs, formatPayloadError(e))
	}
	for _, c := range p.Config {
		for _, e := range c.Errors {
			if strings.TrimSpace(e.File) == "" {
				e.File = c.File
			}
			msgs = append(msgs, formatPayloadError(e))
		}
	}
	return strings.Join(msgs, "; ")
}

func formatPayloadError(e payloadError) string {
	file := strings.TrimSpace(e.File)
	if file == "" {
		file = "<input>"
	}
	if e.Line != nil {
		return fmt.Sprintf("%s:%d: %s", file, *e.Line, e.Error)
	}
	return fmt.Sprintf("%s: %s", file, e.Error)
}
