package edgegen

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// Target names, in registry order.
const (
	TargetWorker     = "worker"
	TargetMiddleware = "middleware"
	TargetCDNHook    = "cdn-hook"
	TargetRuntime    = "runtime"
)

// Generator produces source code for one edge target from one config.
// Instances are cheap; construct one per (config, target) pair.
type Generator interface {
	// Target returns the registry name of the target.
	Target() string
	// FileExtension returns the extension of the generated file, dot
	// included.
	FileExtension() string
	// Validate collects every error and warning for the config against
	// this target's capabilities. It never short-circuits.
	Validate() ValidationResult
	// Generate validates first and refuses with one aggregate error when
	// validation fails; it never emits partial output. Successful output
	// is byte-identical across calls.
	Generate() (string, error)
}

// ValidationResult is the outcome of Generator.Validate. Valid is false
// exactly when Errors is non-empty; warnings alone keep the config
// generatable.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// TargetInfo describes one registered target.
type TargetInfo struct {
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

var registry = []TargetInfo{
	{Name: TargetWorker, Extension: ".js", Description: "fetch-event service worker with outbound proxying"},
	{Name: TargetMiddleware, Extension: ".ts", Description: "HTTP middleware rewriting to internal routes"},
	{Name: TargetCDNHook, Extension: ".js", Description: "CDN edge hook dispatching on request/response lifecycle phases"},
	{Name: TargetRuntime, Extension: ".js", Description: "minimal embeddable runtime using a platform-injected fetch"},
}

// Targets lists the registered targets in fixed order.
func Targets() []TargetInfo {
	out := make([]TargetInfo, len(registry))
	copy(out, registry)
	return out
}

// TargetNames lists the registry names in fixed order.
func TargetNames() []string {
	out := make([]string, len(registry))
	for i, t := range registry {
		out[i] = t.Name
	}
	return out
}

// New constructs the generator for a target name.
func New(target string, cfg *nginxconf.Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case TargetWorker:
		return &workerGen{cfg: cfg}, nil
	case TargetMiddleware:
		return &middlewareGen{cfg: cfg}, nil
	case TargetCDNHook:
		return &cdnHookGen{cfg: cfg}, nil
	case TargetRuntime:
		return &runtimeGen{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown target %q (valid targets: %s)", target, strings.Join(TargetNames(), ", "))
	}
}

// generateError is the aggregate error Generate returns on a failed
// validation.
func generateError(target string, res ValidationResult) error {
	return fmt.Errorf("%s validation failed with %d error(s): %s", target, len(res.Errors), strings.Join(res.Errors, "; "))
}

func newResult(errs, warns []string) ValidationResult {
	errs = dedupe(errs)
	warns = dedupe(warns)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// dedupe drops repeated messages, keeping first-appearance order. Never
// returns nil so JSON encodes empty lists, not null.
func dedupe(msgs []string) []string {
	out := make([]string, 0, len(msgs))
	seen := map[string]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// structuralWarnings are the shared checks every target runs before its
// capability checks. Deployability problems are warnings at this level.
func structuralWarnings(cfg *nginxconf.Config) []string {
	var warns []string
	if len(cfg.Servers) == 0 {
		warns = append(warns, "configuration has no server blocks; output contains only boilerplate")
	}
	for i, srv := range cfg.Servers {
		label := serverLabel(srv, i)
		if len(srv.Listens) == 0 {
			warns = append(warns, fmt.Sprintf("server %s has no listen directive", label))
		}
		if len(srv.Locations) == 0 {
			warns = append(warns, fmt.Sprintf("server %s has no location blocks and produces no routes", label))
		}
	}
	return warns
}

func serverLabel(srv *nginxconf.Server, idx int) string {
	if len(srv.ServerNames) > 0 {
		return fmt.Sprintf("%q", srv.ServerNames[0])
	}
	return fmt.Sprintf("#%d", idx+1)
}

// serverComment is the emitted comment naming a server block.
func serverComment(srv *nginxconf.Server, idx int) string {
	if len(srv.ServerNames) > 0 {
		return strings.Join(srv.ServerNames, ", ")
	}
	return fmt.Sprintf("#%d (any host)", idx+1)
}

// locationComment is the emitted comment naming a location block.
func locationComment(loc *nginxconf.Location) string {
	if loc.Modifier != "" {
		return loc.Modifier + " " + loc.Path
	}
	return loc.Path
}

// emitServers writes one guarded block per server, handing each
// location to emit in match order. The host guard is dropped when the
// server matches any host.
func emitServers(c *codeBuf, cfg *nginxconf.Config, emit func(*codeBuf, *nginxconf.Location)) {
	for i, srv := range cfg.Servers {
		cond := HostCondition(srv.ServerNames, "host")
		c.blank()
		c.linef("// server %s", serverComment(srv, i))
		wrapped := cond != "true"
		if wrapped {
			c.linef("if (%s) {", cond)
			c.in()
		}
		for _, loc := range SortLocations(srv.Locations) {
			emit(c, loc)
		}
		if wrapped {
			c.out()
			c.line("}")
		}
	}
}

// templateWarnings reports unknown runtime variables in every templated
// value of a location.
func templateWarnings(label string, loc *nginxconf.Location) []string {
	var warns []string
	check := func(what, s string) {
		for _, name := range CompileTemplate(s).UnknownVars() {
			warns = append(warns, fmt.Sprintf("server %s location %s: unknown variable $%s in %s renders empty at runtime", label, loc.Path, name, what))
		}
	}
	d := loc.Directives
	if d.Return != nil {
		check("return", d.Return.URL)
		check("return", d.Return.Text)
	}
	for _, r := range d.Rewrites {
		check("rewrite replacement", r.Replacement)
	}
	for _, h := range ResponseHeaders(d) {
		check("add_header "+h[0], h[1])
	}
	for _, h := range RequestHeaders(d) {
		check("proxy_set_header "+h[0], h[1])
	}
	return warns
}

// expiresWarning reports an expires value no generator understands.
func expiresWarning(label string, loc *nginxconf.Location) []string {
	if _, err := ParseExpires(loc.Directives.Expires); err != nil {
		return []string{fmt.Sprintf("server %s location %s: %v", label, loc.Path, err)}
	}
	return nil
}

// extraDirective reports whether a location carries the named unmodeled
// directive.
func extraDirective(loc *nginxconf.Location, name string) bool {
	_, ok := loc.Directives.Extra[name]
	return ok
}

// resolveProxyTarget resolves a proxy_pass value against the config's
// upstreams. A URL whose host names a defined upstream (and carries no
// explicit port) resolves to the pool's first non-down server. The second
// result is a warning when resolution hides usable pool members or an
// inert balancing method.
func resolveProxyTarget(cfg *nginxconf.Config, proxyPass string) (string, string) {
	u, err := url.Parse(proxyPass)
	if err != nil || u.Host == "" || u.Port() != "" {
		return proxyPass, ""
	}
	up := cfg.Upstream(u.Hostname())
	if up == nil {
		return proxyPass, ""
	}
	srv, ok := up.FirstUsable()
	if !ok {
		return proxyPass, fmt.Sprintf("upstream %q has no servers; proxy_pass %q left unresolved", up.Name, proxyPass)
	}
	host := srv.Address
	if srv.Port > 0 {
		host = fmt.Sprintf("%s:%d", srv.Address, srv.Port)
	}
	u.Host = host
	warning := ""
	usable := 0
	for _, s := range up.Servers {
		if !s.Down {
			usable++
		}
	}
	if usable > 1 || up.Method != "" {
		warning = fmt.Sprintf("upstream %q resolves to its first server %s; load balancing across %d server(s) is not generated", up.Name, host, len(up.Servers))
	}
	return u.String(), warning
}
