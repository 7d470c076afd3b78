package nginxconf

import (
	"sort"
	"strings"
)

// DirectiveMetadata describes one recognized directive.
// Context uses normalized names:
// - "top" for file-level statements.
// - other values match block names (http/server/location/upstream).
type DirectiveMetadata struct {
	Name    string
	Context string
	Summary string
}

var directiveMetadata = []DirectiveMetadata{
	{Name: "http", Context: "top", Summary: "`http { ... }`\n\nGroups servers and upstreams. The builder flattens it away."},
	{Name: "include", Context: "top", Summary: "`include <path-or-glob>;`\n\nInlines another config file. Relative paths resolve against the including file."},
	{Name: "server", Context: "http", Summary: "`server { ... }`\n\nDefines one virtual server with its listen addresses, names and locations."},
	{Name: "upstream", Context: "http", Summary: "`upstream <name> { ... }`\n\nNames a backend pool referenced by proxy_pass http://<name>."},

	{Name: "listen", Context: "server", Summary: "`listen <address>[:port] [ssl] [http2] [default_server];`\n\nBinds the server to an address and port."},
	{Name: "server_name", Context: "server", Summary: "`server_name <name> [name ...];`\n\nHostnames this server answers for. Wildcards like *.example.com match one or more labels."},
	{Name: "location", Context: "server", Summary: "`location [= | ~ | ~* | ^~] <path> { ... }`\n\nRoutes requests by path. Modifiers select exact, regex or priority-prefix matching."},
	{Name: "ssl_certificate", Context: "server", Summary: "`ssl_certificate <file>;`\n\nCertificate chain for TLS. Informational in generated edge code."},
	{Name: "ssl_certificate_key", Context: "server", Summary: "`ssl_certificate_key <file>;`\n\nPrivate key for TLS. Informational in generated edge code."},
	{Name: "ssl_protocols", Context: "server", Summary: "`ssl_protocols <proto> [proto ...];`\n\nAccepted TLS protocol versions."},
	{Name: "ssl_ciphers", Context: "server", Summary: "`ssl_ciphers <list>;`\n\nAccepted TLS cipher suites."},

	{Name: "proxy_pass", Context: "location", Summary: "`proxy_pass <url>;`\n\nForwards matched requests to a backend URL or a named upstream."},
	{Name: "return", Context: "location", Summary: "`return <code> [url-or-text];`\n\n3xx codes redirect to the url; other codes answer directly with the text as body."},
	{Name: "rewrite", Context: "location", Summary: "`rewrite <regex> <replacement> [flag];`\n\nRewrites the request path. The redirect and permanent flags emit 302 and 301 responses."},
	{Name: "add_header", Context: "location", Summary: "`add_header <name> <value>;`\n\nAdds a response header. Repeating a name keeps the last value."},
	{Name: "proxy_set_header", Context: "location", Summary: "`proxy_set_header <name> <value>;`\n\nSets a header on the proxied upstream request."},
	{Name: "root", Context: "location", Summary: "`root <path>;`\n\nDocument root for static files. Edge targets map this to their asset story."},
	{Name: "alias", Context: "location", Summary: "`alias <path>;`\n\nReplaces the matched location prefix with a filesystem path."},
	{Name: "index", Context: "location", Summary: "`index <file> [file ...];`\n\nDefault files served for directory requests."},
	{Name: "expires", Context: "location", Summary: "`expires <time>;`\n\nCache lifetime hint carried into generated Cache-Control handling."},

	{Name: "server", Context: "upstream", Summary: "`server <address>[:port] [weight=n] [backup] [down];`\n\nOne backend in the pool. Entries marked down are skipped at resolution time."},
	{Name: "least_conn", Context: "upstream", Summary: "`least_conn;`\n\nLoad-balancing method. Recorded on the model; generators do not balance."},
	{Name: "ip_hash", Context: "upstream", Summary: "`ip_hash;`\n\nLoad-balancing method. Recorded on the model; generators do not balance."},
	{Name: "hash", Context: "upstream", Summary: "`hash <key> [consistent];`\n\nLoad-balancing method. Recorded on the model; generators do not balance."},
	{Name: "random", Context: "upstream", Summary: "`random;`\n\nLoad-balancing method. Recorded on the model; generators do not balance."},
}

// DirectiveSummary returns summary markdown for a directive name.
func DirectiveSummary(name string) (string, bool) {
	key := strings.TrimSpace(name)
	if key == "" {
		return "", false
	}
	for _, d := range directiveMetadata {
		if d.Name != key || strings.TrimSpace(d.Summary) == "" {
			continue
		}
		return d.Summary, true
	}
	return "", false
}

// DirectiveSummaryInContext returns summary markdown for a directive in one
// context. It first tries exact context match, then falls back to global
// name-only match.
func DirectiveSummaryInContext(name, context string) (string, bool) {
	key := strings.TrimSpace(name)
	if key == "" {
		return "", false
	}
	c := normalizeMetaContext(context)
	for _, d := range directiveMetadata {
		if d.Name != key || strings.TrimSpace(d.Summary) == "" {
			continue
		}
		if normalizeMetaContext(d.Context) != c {
			continue
		}
		return d.Summary, true
	}
	return DirectiveSummary(name)
}

// DirectivesByContext returns directive names recognized in one context.
func DirectivesByContext(context string) []string {
	c := normalizeMetaContext(context)
	if c == "" {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, 16)
	for _, d := range directiveMetadata {
		if normalizeMetaContext(d.Context) != c {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		out = append(out, d.Name)
	}
	return out
}

// DirectiveContexts returns the contexts that have registered directives,
// sorted.
func DirectiveContexts() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, d := range directiveMetadata {
		c := normalizeMetaContext(d.Context)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// KnownDirectives returns all registered directive names, sorted and
// deduplicated.
func KnownDirectives() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(directiveMetadata))
	for _, d := range directiveMetadata {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

func normalizeMetaContext(s string) string {
	v := strings.TrimSpace(strings.ToLower(s))
	switch v {
	case "_top", "main":
		return "top"
	default:
		return v
	}
}
