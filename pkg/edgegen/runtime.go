package edgegen

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// runtimeGen emits a dependency-free handler for embedding. No URL or
// Response classes are assumed; requests and responses are plain
// objects and proxying goes through a platform-supplied fetch.
type runtimeGen struct {
	cfg *nginxconf.Config
}

func (g *runtimeGen) Target() string        { return TargetRuntime }
func (g *runtimeGen) FileExtension() string { return ".js" }

// runtimeUsage records which helpers the emitted handler references so
// unused ones stay out of the output.
type runtimeUsage struct {
	redirect bool
	proxy    bool
	headers  bool
	expand   bool
}

func (g *runtimeGen) usage() runtimeUsage {
	var u runtimeUsage
	varsIn := func(s string) bool { return CompileTemplate(s).HasVars() }
	for _, srv := range g.cfg.Servers {
		for _, loc := range srv.Locations {
			a := PlanAction(loc)
			if hdrs := ResponseHeaders(loc.Directives); len(hdrs) > 0 {
				u.headers = true
				for _, h := range hdrs {
					if varsIn(h[1]) {
						u.expand = true
					}
				}
			}
			switch a.Kind {
			case ActionRedirect:
				u.redirect = true
				if varsIn(a.URL) {
					u.expand = true
				}
			case ActionRespond:
				if a.Body != "" && varsIn(a.Body) {
					u.expand = true
				}
			case ActionRewriteRedirect:
				u.redirect = true
				for _, r := range a.RedirectRules {
					if varsIn(r.Replacement) {
						u.expand = true
					}
				}
			case ActionProxy:
				u.proxy = true
				for _, h := range RequestHeaders(loc.Directives) {
					if varsIn(h[1]) {
						u.expand = true
					}
				}
			}
		}
	}
	return u
}

// hasComplexRegex reports lookaround or backreferences, which minimal
// regex engines commonly lack.
func hasComplexRegex(pattern string) bool {
	if strings.Contains(pattern, "(?=") || strings.Contains(pattern, "(?!") || strings.Contains(pattern, "(?<") {
		return true
	}
	escaped := false
	for _, r := range pattern {
		if escaped {
			if r >= '1' && r <= '9' {
				return true
			}
			escaped = false
			continue
		}
		escaped = r == '\\'
	}
	return false
}

func (g *runtimeGen) Validate() ValidationResult {
	warns := structuralWarnings(g.cfg)
	var errs []string
	for i, srv := range g.cfg.Servers {
		label := serverLabel(srv, i)
		if srv.SSL != nil {
			warns = append(warns, fmt.Sprintf("server %s: tls termination is left to the embedding application", label))
		}
		for _, loc := range srv.Locations {
			if loc.Directives.Root != "" {
				errs = append(errs, fmt.Sprintf("server %s location %s: root %q needs a filesystem the embedded runtime does not have", label, loc.Path, loc.Directives.Root))
			}
			if loc.Directives.Alias != "" {
				errs = append(errs, fmt.Sprintf("server %s location %s: alias %q needs a filesystem the embedded runtime does not have", label, loc.Path, loc.Directives.Alias))
			}
			for _, name := range []string{"fastcgi_pass", "uwsgi_pass"} {
				if extraDirective(loc, name) {
					errs = append(errs, fmt.Sprintf("server %s location %s: %s is not available in the embedded runtime", label, loc.Path, name))
				}
			}
			if loc.Modifier == "~" || loc.Modifier == "~*" {
				if hasComplexRegex(loc.Path) {
					warns = append(warns, fmt.Sprintf("server %s location %s: pattern %q uses lookaround or backreferences the embedded regex engine may not support", label, loc.Path, loc.Path))
				}
			}
			a := PlanAction(loc)
			if len(a.InternalRewrites) > 0 {
				warns = append(warns, fmt.Sprintf("server %s location %s: rewrite without a redirect flag is not applied by this target", label, loc.Path))
			}
			for _, r := range a.RedirectRules {
				if hasComplexRegex(r.Regex) {
					warns = append(warns, fmt.Sprintf("server %s location %s: pattern %q uses lookaround or backreferences the embedded regex engine may not support", label, loc.Path, r.Regex))
				}
			}
			switch a.Kind {
			case ActionProxy:
				target, w := resolveProxyTarget(g.cfg, a.ProxyPass)
				if w != "" {
					warns = append(warns, w)
				}
				if u, err := url.Parse(target); err != nil || u.Host == "" {
					warns = append(warns, fmt.Sprintf("server %s location %s: proxy_pass %q is not a valid URL", label, loc.Path, a.ProxyPass))
				}
			case ActionPassthrough:
				warns = append(warns, fmt.Sprintf("server %s location %s: no runnable action; the embedded runtime answers 404", label, loc.Path))
			}
			warns = append(warns, templateWarnings(label, loc)...)
			warns = append(warns, expiresWarning(label, loc)...)
		}
	}
	return newResult(errs, warns)
}

func (g *runtimeGen) Generate() (string, error) {
	res := g.Validate()
	if !res.Valid {
		return "", generateError(TargetRuntime, res)
	}
	use := g.usage()
	c := &codeBuf{}
	c.line("// Code generated by ngx2edge for the runtime target. DO NOT EDIT.")
	c.linef("// Servers: %d, upstreams: %d.", len(g.cfg.Servers), len(g.cfg.Upstreams))
	c.blank()
	c.line("// createHandler wires the converted routes onto a host application.")
	c.line("// The platform argument provides fetch(url, options) returning a")
	c.line("// response. Requests are plain objects with method, url, headers,")
	c.line("// body and remoteAddr; responses are { status, headers, body }.")
	c.line("function createHandler(platform) {")
	c.in()
	c.line("return function (request) {")
	c.in()
	c.line("var url = parseUrl(request.url);")
	c.line("var host = hostOf(request, url);")
	c.line("var path = url.path;")
	emitServers(c, g.cfg, g.emitLocation)
	c.blank()
	c.line("return { status: 404, headers: {}, body: 'Not Found' };")
	c.out()
	c.line("};")
	c.out()
	c.line("}")
	g.emitHelpers(c, use)
	c.blank()
	c.line("if (typeof module !== 'undefined' && module.exports) {")
	c.in()
	c.line("module.exports = { createHandler: createHandler };")
	c.out()
	c.line("}")
	return c.String(), nil
}

func (g *runtimeGen) emitLocation(c *codeBuf, loc *nginxconf.Location) {
	a := PlanAction(loc)
	headers := ResponseHeaders(loc.Directives)
	c.linef("// location %s", locationComment(loc))
	c.linef("if (%s) {", PathCondition(loc, "path"))
	c.in()
	switch a.Kind {
	case ActionRedirect:
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectResponse(%s, %d)", jsTemplateExpr(a.URL, "request"), a.Code), headers))
	case ActionRespond:
		body := "''"
		if a.Body != "" {
			body = jsTemplateExpr(a.Body, "request")
		}
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("{ status: %d, headers: {}, body: %s }", a.Code, body), headers))
	case ActionRewriteRedirect:
		for _, r := range a.RedirectRules {
			re := jsRegex(r.Regex, "")
			c.linef("if (%s.test(path)) {", re)
			c.in()
			c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectResponse(%s, %d)", replaceExpr(re, r.Replacement), RedirectStatus(r)), headers))
			c.out()
			c.line("}")
		}
	case ActionProxy:
		target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
		target = strings.TrimSuffix(target, "/")
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("proxyVia(platform, request, %s, %s)", jsStr(target), jsHeaderObjectExpanded(RequestHeaders(loc.Directives), "request")), headers))
	default:
		c.line("// no action maps onto the embedded runtime")
		c.linef("return %s;", g.withHeaders("{ status: 404, headers: {}, body: 'Not Found' }", headers))
	}
	c.out()
	c.line("}")
}

func (g *runtimeGen) withHeaders(expr string, headers [][2]string) string {
	if len(headers) == 0 {
		return expr
	}
	return fmt.Sprintf("withHeaders(%s, %s)", expr, jsHeaderObjectExpanded(headers, "request"))
}

func (g *runtimeGen) emitHelpers(c *codeBuf, use runtimeUsage) {
	c.blank()
	c.line("function parseUrl(raw) {")
	c.in()
	c.line("var rest = raw || '';")
	c.line("var scheme = 'http';")
	c.line("var idx = rest.indexOf('://');")
	c.line("if (idx >= 0) {")
	c.in()
	c.line("scheme = rest.slice(0, idx).toLowerCase();")
	c.line("rest = rest.slice(idx + 3);")
	c.out()
	c.line("}")
	c.line("var host = '';")
	c.line("if (idx >= 0) {")
	c.in()
	c.line("var slash = rest.indexOf('/');")
	c.line("if (slash < 0) {")
	c.in()
	c.line("host = rest;")
	c.line("rest = '/';")
	c.out()
	c.line("} else {")
	c.in()
	c.line("host = rest.slice(0, slash);")
	c.line("rest = rest.slice(slash);")
	c.out()
	c.line("}")
	c.line("var colon = host.lastIndexOf(':');")
	c.line("if (colon > host.lastIndexOf(']')) {")
	c.in()
	c.line("host = host.slice(0, colon);")
	c.out()
	c.line("}")
	c.out()
	c.line("}")
	c.line("var query = '';")
	c.line("var q = rest.indexOf('?');")
	c.line("if (q >= 0) {")
	c.in()
	c.line("query = rest.slice(q + 1);")
	c.line("rest = rest.slice(0, q);")
	c.out()
	c.line("}")
	c.line("return { scheme: scheme, host: host.toLowerCase(), path: rest || '/', query: query };")
	c.out()
	c.line("}")
	c.blank()
	c.line("function hostOf(request, url) {")
	c.in()
	c.line("if (url.host) { return url.host; }")
	c.line("var headers = request.headers || {};")
	c.line("for (var key in headers) {")
	c.in()
	c.line("if (key.toLowerCase() === 'host') {")
	c.in()
	c.line("return String(headers[key]).split(':')[0].toLowerCase();")
	c.out()
	c.line("}")
	c.out()
	c.line("}")
	c.line("return '';")
	c.out()
	c.line("}")
	if use.redirect {
		c.blank()
		c.line("function redirectResponse(location, status) {")
		c.in()
		c.line("return { status: status, headers: { 'Location': location }, body: '' };")
		c.out()
		c.line("}")
	}
	if use.headers {
		c.blank()
		c.line("function withHeaders(response, headers) {")
		c.in()
		c.line("for (var name in headers) {")
		c.in()
		c.line("response.headers[name] = headers[name];")
		c.out()
		c.line("}")
		c.line("return response;")
		c.out()
		c.line("}")
	}
	if use.proxy {
		c.blank()
		c.line("function proxyVia(platform, request, target, headers) {")
		c.in()
		c.line("var url = parseUrl(request.url);")
		c.line("var full = target + url.path + (url.query ? '?' + url.query : '');")
		c.line("var outgoing = {};")
		c.line("var name;")
		c.line("for (name in request.headers || {}) {")
		c.in()
		c.line("outgoing[name] = request.headers[name];")
		c.out()
		c.line("}")
		c.line("outgoing['Host'] = parseUrl(target).host;")
		c.line("for (name in headers) {")
		c.in()
		c.line("outgoing[name] = headers[name];")
		c.out()
		c.line("}")
		c.line("return platform.fetch(full, { method: request.method || 'GET', headers: outgoing, body: request.body });")
		c.out()
		c.line("}")
	}
	if use.expand {
		c.blank()
		c.line("function expandVariables(template, request) {")
		c.in()
		c.line("var url = parseUrl(request.url);")
		c.line("var vars = {")
		c.in()
		c.line("request_uri: url.path + (url.query ? '?' + url.query : ''),")
		c.line("uri: url.path,")
		c.line("args: url.query,")
		c.line("query_string: url.query,")
		c.line("host: hostOf(request, url),")
		c.line("server_name: hostOf(request, url),")
		c.line("scheme: url.scheme,")
		c.line("remote_addr: request.remoteAddr || ''")
		c.out()
		c.line("};")
		c.line("return template.replace(/\\$(\\$|[A-Za-z0-9_]+)/g, function (m, name) {")
		c.in()
		c.line("if (name === '$') { return '$'; }")
		c.line("if (/^[0-9]+$/.test(name)) { return m; }")
		c.line("return Object.prototype.hasOwnProperty.call(vars, name) ? vars[name] : '';")
		c.out()
		c.line("});")
		c.out()
		c.line("}")
	}
}
