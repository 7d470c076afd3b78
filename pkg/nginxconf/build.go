package nginxconf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuildWarning reports a directive the builder could not model. Building
// never fails; every problem is downgraded to a warning so a partial config
// still produces a usable model.
type BuildWarning struct {
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Directive string `json:"directive,omitempty"`
	Message   string `json:"message"`
}

func (w BuildWarning) String() string {
	file := w.File
	if file == "" {
		file = "<input>"
	}
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", file, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", file, w.Message)
}

// Build converts a directive tree into the normalized config model. Unknown
// or malformed directives are skipped with a warning; an empty tree yields
// an empty model and no warnings. Warnings come back sorted by file, line
// and directive so output is stable across runs.
func Build(tree []*Directive) (*Config, []BuildWarning) {
	b := &builder{cfg: &Config{
		Servers:   []*Server{},
		Upstreams: []*Upstream{},
		Global:    map[string]Value{},
	}}
	b.walkTop(tree, false)
	sort.SliceStable(b.warnings, func(i, j int) bool {
		a, c := b.warnings[i], b.warnings[j]
		if a.File != c.File {
			return a.File < c.File
		}
		if a.Line != c.Line {
			return a.Line < c.Line
		}
		return a.Directive < c.Directive
	})
	return b.cfg, b.warnings
}

type builder struct {
	cfg      *Config
	warnings []BuildWarning
}

func (b *builder) warnf(d *Directive, format string, args ...any) {
	w := BuildWarning{Message: fmt.Sprintf(format, args...)}
	if d != nil {
		w.File = d.File
		w.Line = d.Line
		w.Directive = d.Name
	}
	b.warnings = append(b.warnings, w)
}

// walkTop handles the top level and the body of an http block, which are
// treated identically: the http wrapper is flattened away.
func (b *builder) walkTop(tree []*Directive, inHTTP bool) {
	for _, d := range tree {
		switch d.Name {
		case "http":
			if inHTTP {
				b.warnf(d, "nested http block skipped")
				continue
			}
			b.walkTop(d.Block, true)
		case "server":
			if srv := b.buildServer(d); srv != nil {
				b.cfg.Servers = append(b.cfg.Servers, srv)
			}
		case "upstream":
			if up := b.buildUpstream(d); up != nil {
				b.cfg.Upstreams = append(b.cfg.Upstreams, up)
			}
		case "events", "stream", "mail":
			b.warnf(d, "%s block is not modeled and was skipped", d.Name)
		default:
			if d.IsBlock() {
				b.warnf(d, "unrecognized block %q skipped", d.Name)
				continue
			}
			b.addGlobal(d)
		}
	}
}

func (b *builder) addGlobal(d *Directive) {
	v := valueFromArgs(d.Args)
	if prev, ok := b.cfg.Global[d.Name]; ok {
		b.cfg.Global[d.Name] = prev.Append(v.AsList()...)
		return
	}
	b.cfg.Global[d.Name] = v
}

// valueFromArgs coerces directive arguments into the tightest value kind:
// no args become true, a lone integer or on/off switch becomes typed, and
// multiple args become a list.
func valueFromArgs(args []string) Value {
	switch len(args) {
	case 0:
		return BoolValue(true)
	case 1:
		a := args[0]
		if n, err := strconv.Atoi(a); err == nil {
			return IntValue(n)
		}
		switch a {
		case "on":
			return BoolValue(true)
		case "off":
			return BoolValue(false)
		}
		return StringValue(a)
	default:
		return ListValue(args...)
	}
}

func (b *builder) buildServer(block *Directive) *Server {
	srv := &Server{
		Listens:     []Listen{},
		ServerNames: []string{},
		Locations:   []*Location{},
	}
	for _, d := range block.Block {
		switch d.Name {
		case "listen":
			srv.Listens = append(srv.Listens, b.buildListen(d))
		case "server_name":
			srv.ServerNames = append(srv.ServerNames, d.Args...)
		case "location":
			if loc := b.buildLocation(d); loc != nil {
				srv.Locations = append(srv.Locations, loc)
			}
		case "ssl_certificate":
			b.ensureSSL(srv).Certificate = d.Arg(0)
		case "ssl_certificate_key":
			b.ensureSSL(srv).CertificateKey = d.Arg(0)
		case "ssl_protocols":
			b.ensureSSL(srv).Protocols = append([]string{}, d.Args...)
		case "ssl_ciphers":
			b.ensureSSL(srv).Ciphers = strings.Join(d.Args, " ")
		case "return", "rewrite":
			b.warnf(d, "server-level %s is not supported; move it into a location block", d.Name)
		case "if":
			b.warnf(d, "if block is not modeled and was skipped")
		default:
			if d.IsBlock() {
				b.warnf(d, "unrecognized block %q inside server skipped", d.Name)
			}
		}
	}
	return srv
}

func (b *builder) ensureSSL(srv *Server) *SSLConfig {
	if srv.SSL == nil {
		srv.SSL = &SSLConfig{}
	}
	return srv.SSL
}

func (b *builder) buildListen(d *Directive) Listen {
	l := Listen{Raw: strings.Join(d.Args, " ")}
	if len(d.Args) == 0 {
		b.warnf(d, "listen directive needs an address")
		return l
	}
	host, portStr := splitListenAddr(d.Args[0])
	l.Host = host
	// A port that does not parse stays zero; there is no implicit 80.
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		b.warnf(d, "listen address %q has no numeric port", d.Args[0])
	} else {
		l.Port = port
	}
	for _, p := range d.Args[1:] {
		switch p {
		case "ssl":
			l.SSL = true
		case "http2":
			l.HTTP2 = true
		case "default_server":
			l.DefaultServer = true
		}
	}
	return l
}

// splitListenAddr separates a listen address into host and port parts.
// A bare number is a port, a bare name is a host, and bracketed IPv6
// addresses keep their brackets on the host side.
func splitListenAddr(addr string) (host, port string) {
	if strings.HasPrefix(addr, "[") {
		end := strings.Index(addr, "]")
		if end < 0 {
			return addr, ""
		}
		host = addr[:end+1]
		rest := addr[end+1:]
		if strings.HasPrefix(rest, ":") {
			return host, rest[1:]
		}
		return host, ""
	}
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		if _, err := strconv.Atoi(addr); err == nil {
			return "", addr
		}
		return addr, ""
	}
	return addr[:i], addr[i+1:]
}

func (b *builder) buildUpstream(block *Directive) *Upstream {
	if block.Arg(0) == "" {
		b.warnf(block, "upstream block needs a name")
		return nil
	}
	up := &Upstream{Name: block.Arg(0), Servers: []UpstreamServer{}}
	for _, d := range block.Block {
		switch d.Name {
		case "server":
			if s, ok := b.buildUpstreamServer(d); ok {
				up.Servers = append(up.Servers, s)
			}
		case "least_conn", "ip_hash", "random":
			up.Method = d.Name
		case "hash":
			up.Method = strings.TrimSpace("hash " + strings.Join(d.Args, " "))
		default:
			b.warnf(d, "unrecognized upstream directive %q skipped", d.Name)
		}
	}
	return up
}

func (b *builder) buildUpstreamServer(d *Directive) (UpstreamServer, bool) {
	if d.Arg(0) == "" {
		b.warnf(d, "upstream server needs an address")
		return UpstreamServer{}, false
	}
	s := UpstreamServer{Address: d.Arg(0)}
	if host, portStr := splitListenAddr(d.Arg(0)); portStr != "" && host != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			s.Address = host
			s.Port = port
		}
	}
	for _, p := range d.Args[1:] {
		switch {
		case strings.HasPrefix(p, "weight="):
			if w, err := strconv.Atoi(strings.TrimPrefix(p, "weight=")); err == nil {
				s.Weight = w
			}
		case p == "backup":
			s.Backup = true
		case p == "down":
			s.Down = true
		}
	}
	return s, true
}

var locationModifiers = map[string]bool{
	"=":  true,
	"~":  true,
	"~*": true,
	"^~": true,
}

func newLocationDirectives() LocationDirectives {
	return LocationDirectives{
		AddHeaders:      map[string]string{},
		ProxySetHeaders: map[string]string{},
		Extra:           map[string]Value{},
	}
}

func (b *builder) buildLocation(block *Directive) *Location {
	if len(block.Args) == 0 {
		b.warnf(block, "location block needs a path")
		return nil
	}
	loc := &Location{Directives: newLocationDirectives()}
	if len(block.Args) >= 2 && locationModifiers[block.Args[0]] {
		loc.Modifier = block.Args[0]
		loc.Path = block.Args[1]
	} else {
		loc.Path = block.Args[0]
	}
	for _, d := range block.Block {
		b.buildLocationDirective(loc, d)
	}
	return loc
}

func (b *builder) buildLocationDirective(loc *Location, d *Directive) {
	ld := &loc.Directives
	switch d.Name {
	case "proxy_pass":
		ld.ProxyPass = strings.TrimSpace(d.Arg(0))
	case "return":
		if r := b.buildReturn(d); r != nil {
			ld.Return = r
		}
	case "root":
		ld.Root = d.Arg(0)
	case "alias":
		ld.Alias = d.Arg(0)
	case "index":
		ld.Index = append([]string{}, d.Args...)
	case "expires":
		ld.Expires = d.Arg(0)
	case "rewrite":
		if len(d.Args) < 2 {
			b.warnf(d, "rewrite needs a pattern and a replacement")
			return
		}
		ld.Rewrites = append(ld.Rewrites, RewriteRule{
			Regex:       d.Args[0],
			Replacement: d.Args[1],
			Flags:       append([]string{}, d.Args[2:]...),
		})
	case "add_header":
		if d.Arg(0) == "" {
			b.warnf(d, "add_header needs a header name")
			return
		}
		// Repeated add_header for the same name keeps the last value.
		ld.AddHeaders[d.Arg(0)] = d.Arg(1)
	case "proxy_set_header":
		if d.Arg(0) == "" {
			b.warnf(d, "proxy_set_header needs a header name")
			return
		}
		ld.ProxySetHeaders[d.Arg(0)] = strings.Join(d.Args[1:], " ")
	case "location":
		b.warnf(d, "nested location %q is not modeled and was skipped", d.Arg(0))
	case "if":
		b.warnf(d, "if block is not modeled and was skipped")
	default:
		if d.IsBlock() {
			b.warnf(d, "unrecognized block %q inside location skipped", d.Name)
			return
		}
		v := valueFromArgs(d.Args)
		if prev, ok := ld.Extra[d.Name]; ok {
			ld.Extra[d.Name] = prev.Append(v.AsList()...)
			return
		}
		ld.Extra[d.Name] = v
	}
}

func (b *builder) buildReturn(d *Directive) *Return {
	code, err := strconv.Atoi(d.Arg(0))
	if err != nil || code < 100 || code > 599 {
		b.warnf(d, "return status %q is not a valid HTTP code", d.Arg(0))
		return nil
	}
	r := &Return{Code: code}
	if len(d.Args) > 1 {
		rest := strings.Join(d.Args[1:], " ")
		if isReturnURL(rest) {
			r.URL = rest
		} else {
			r.Text = rest
		}
	}
	return r
}

// isReturnURL decides whether the body of a return directive is a redirect
// target or a literal response body.
func isReturnURL(s string) bool {
	for _, p := range []string{"http://", "https://", "$scheme", "//", "/"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
