package nginxconf

import "strings"

// Config is the normalized model produced by Build. Generators treat it as
// read-only input.
type Config struct {
	Servers   []*Server        `json:"servers"`
	Upstreams []*Upstream      `json:"upstreams"`
	Global    map[string]Value `json:"global"`
}

// Upstream returns the named upstream, or nil when it does not exist.
func (c *Config) Upstream(name string) *Upstream {
	for _, u := range c.Upstreams {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Server models one server block.
type Server struct {
	Listens     []Listen    `json:"listens"`
	ServerNames []string    `json:"server_names"`
	SSL         *SSLConfig  `json:"ssl,omitempty"`
	Locations   []*Location `json:"locations"`
}

// Listen is one parsed listen directive.
type Listen struct {
	Port          int    `json:"port"`
	Host          string `json:"host,omitempty"`
	SSL           bool   `json:"ssl,omitempty"`
	HTTP2         bool   `json:"http2,omitempty"`
	DefaultServer bool   `json:"default_server,omitempty"`
	Raw           string `json:"raw"`
}

// SSLConfig groups the ssl_* directives of a server block.
type SSLConfig struct {
	Certificate    string   `json:"certificate,omitempty"`
	CertificateKey string   `json:"certificate_key,omitempty"`
	Protocols      []string `json:"protocols,omitempty"`
	Ciphers        string   `json:"ciphers,omitempty"`
}

// Location is one location block with its matcher and collected directives.
type Location struct {
	Path       string             `json:"path"`
	Modifier   string             `json:"modifier,omitempty"`
	Directives LocationDirectives `json:"directives"`
}

// LocationDirectives holds the modeled per-location settings. Directives
// without a dedicated field land in Extra.
type LocationDirectives struct {
	ProxyPass       string            `json:"proxy_pass,omitempty"`
	Root            string            `json:"root,omitempty"`
	Alias           string            `json:"alias,omitempty"`
	Index           []string          `json:"index,omitempty"`
	Expires         string            `json:"expires,omitempty"`
	Return          *Return           `json:"return,omitempty"`
	Rewrites        []RewriteRule     `json:"rewrites,omitempty"`
	AddHeaders      map[string]string `json:"add_headers,omitempty"`
	ProxySetHeaders map[string]string `json:"proxy_set_headers,omitempty"`
	Extra           map[string]Value  `json:"extra,omitempty"`
}

// RewriteRule is one rewrite directive.
type RewriteRule struct {
	Regex       string   `json:"regex"`
	Replacement string   `json:"replacement"`
	Flags       []string `json:"flags,omitempty"`
}

// HasFlag reports whether the rule carries the named flag, ignoring case.
func (r RewriteRule) HasFlag(name string) bool {
	for _, f := range r.Flags {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Return is a parsed return directive. Exactly one of URL and Text is set
// when the directive had a second argument.
type Return struct {
	Code int    `json:"code"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// Upstream models one upstream block.
type Upstream struct {
	Name    string           `json:"name"`
	Servers []UpstreamServer `json:"servers"`
	Method  string           `json:"method,omitempty"`
}

// UpstreamServer is one server entry inside an upstream block.
type UpstreamServer struct {
	Address string `json:"address"`
	Port    int    `json:"port,omitempty"`
	Weight  int    `json:"weight,omitempty"`
	Backup  bool   `json:"backup,omitempty"`
	Down    bool   `json:"down,omitempty"`
}

// FirstUsable returns the first server not marked down, falling back to the
// first entry when all are down. The second result is false only for an
// empty upstream.
func (u *Upstream) FirstUsable() (UpstreamServer, bool) {
	for _, s := range u.Servers {
		if !s.Down {
			return s, true
		}
	}
	if len(u.Servers) > 0 {
		return u.Servers[0], true
	}
	return UpstreamServer{}, false
}
