package edgegen

import (
	"fmt"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// workerGen emits a fetch-event service worker. Proxying is an outbound
// fetch to the upstream URL forwarding method, headers and body.
type workerGen struct {
	cfg *nginxconf.Config
}

func (g *workerGen) Target() string        { return TargetWorker }
func (g *workerGen) FileExtension() string { return ".js" }

func (g *workerGen) Validate() ValidationResult {
	warns := structuralWarnings(g.cfg)
	for i, srv := range g.cfg.Servers {
		label := serverLabel(srv, i)
		if srv.SSL != nil {
			warns = append(warns, fmt.Sprintf("server %s: ssl certificate directives are handled by the platform and not emitted", label))
		}
		for _, loc := range srv.Locations {
			a := PlanAction(loc)
			if a.Kind == ActionStatic {
				warns = append(warns, fmt.Sprintf("server %s location %s: static path %q must be served by the platform's asset pipeline", label, loc.Path, a.StaticPath))
			}
			if len(a.InternalRewrites) > 0 {
				warns = append(warns, fmt.Sprintf("server %s location %s: rewrite without a redirect flag is not applied by this target", label, loc.Path))
			}
			if a.Kind == ActionProxy {
				if _, w := resolveProxyTarget(g.cfg, a.ProxyPass); w != "" {
					warns = append(warns, w)
				}
			}
			warns = append(warns, templateWarnings(label, loc)...)
			warns = append(warns, expiresWarning(label, loc)...)
		}
	}
	return newResult(nil, warns)
}

func (g *workerGen) Generate() (string, error) {
	res := g.Validate()
	if !res.Valid {
		return "", generateError(TargetWorker, res)
	}
	c := &codeBuf{}
	c.line("// Code generated by ngx2edge for the worker target. DO NOT EDIT.")
	c.linef("// Servers: %d, upstreams: %d.", len(g.cfg.Servers), len(g.cfg.Upstreams))
	c.blank()
	c.line("addEventListener('fetch', function (event) {")
	c.in()
	c.line("event.respondWith(handleRequest(event.request));")
	c.out()
	c.line("});")
	c.blank()
	c.line("async function handleRequest(request) {")
	c.in()
	c.line("var url = new URL(request.url);")
	c.line("var host = url.hostname.toLowerCase();")
	c.line("var path = url.pathname;")
	emitServers(c, g.cfg, g.emitLocation)
	c.blank()
	c.line("return fetch(request);")
	c.out()
	c.line("}")
	g.emitHelpers(c)
	return c.String(), nil
}

func (g *workerGen) emitLocation(c *codeBuf, loc *nginxconf.Location) {
	a := PlanAction(loc)
	headers := ResponseHeaders(loc.Directives)
	c.linef("// location %s", locationComment(loc))
	c.linef("if (%s) {", PathCondition(loc, "path"))
	c.in()
	switch a.Kind {
	case ActionRedirect:
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectResponse(%s, %d)", jsTemplateExpr(a.URL, "request"), a.Code), headers))
	case ActionRespond:
		body := "null"
		if a.Body != "" {
			body = jsTemplateExpr(a.Body, "request")
		}
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("new Response(%s, { status: %d })", body, a.Code), headers))
	case ActionRewriteRedirect:
		for _, r := range a.RedirectRules {
			re := jsRegex(r.Regex, "")
			repl := fmt.Sprintf("path.replace(%s, %s)", re, jsStr(r.Replacement))
			if CompileTemplate(r.Replacement).HasVars() {
				repl = fmt.Sprintf("expandVariables(%s, request)", repl)
			}
			c.linef("if (%s.test(path)) {", re)
			c.in()
			c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectResponse(%s, %d)", repl, RedirectStatus(r)), headers))
			c.out()
			c.line("}")
		}
	case ActionProxy:
		target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
		call := fmt.Sprintf("proxyRequest(request, %s, %s)", jsStr(target), jsHeaderObject(RequestHeaders(loc.Directives)))
		if len(headers) > 0 {
			call = "await " + call
		}
		c.linef("return %s;", g.withHeaders(call, headers))
	case ActionStatic:
		c.linef("// static content under %s is served by the platform's asset pipeline", jsStr(a.StaticPath))
		if len(headers) > 0 {
			c.linef("return %s;", g.withHeaders("await fetch(request)", headers))
		} else {
			c.line("return fetch(request);")
		}
	default:
		if len(headers) > 0 {
			c.linef("return %s;", g.withHeaders("await fetch(request)", headers))
		} else {
			c.line("return fetch(request);")
		}
	}
	c.out()
	c.line("}")
}

// withHeaders wraps a response expression in applyHeaders when the
// location sets response headers.
func (g *workerGen) withHeaders(expr string, headers [][2]string) string {
	if len(headers) == 0 {
		return expr
	}
	return fmt.Sprintf("applyHeaders(%s, %s, request)", expr, jsHeaderObject(headers))
}

func (g *workerGen) emitHelpers(c *codeBuf) {
	c.blank()
	c.line("function redirectResponse(location, status) {")
	c.in()
	c.line("return new Response(null, { status: status, headers: { 'Location': location } });")
	c.out()
	c.line("}")
	c.blank()
	c.line("async function proxyRequest(request, target, headers) {")
	c.in()
	c.line("var url = new URL(request.url);")
	c.line("var upstream = new URL(target);")
	c.line("url.protocol = upstream.protocol;")
	c.line("url.host = upstream.host;")
	c.line("if (upstream.pathname && upstream.pathname !== '/') {")
	c.in()
	c.line("url.pathname = upstream.pathname.replace(/\\/$/, '') + url.pathname;")
	c.out()
	c.line("}")
	c.line("var proxied = new Request(url.toString(), request);")
	c.line("proxied.headers.set('Host', upstream.hostname);")
	c.line("for (var name in headers) {")
	c.in()
	c.line("proxied.headers.set(name, expandVariables(headers[name], request));")
	c.out()
	c.line("}")
	c.line("return fetch(proxied);")
	c.out()
	c.line("}")
	c.blank()
	c.line("function applyHeaders(response, headers, request) {")
	c.in()
	c.line("var out = new Response(response.body, response);")
	c.line("for (var name in headers) {")
	c.in()
	c.line("out.headers.set(name, expandVariables(headers[name], request));")
	c.out()
	c.line("}")
	c.line("return out;")
	c.out()
	c.line("}")
	c.blank()
	c.line("function expandVariables(template, request) {")
	c.in()
	c.line("var url = new URL(request.url);")
	c.line("var vars = {")
	c.in()
	c.line("request_uri: url.pathname + url.search,")
	c.line("uri: url.pathname,")
	c.line("args: url.search.replace(/^\\?/, ''),")
	c.line("query_string: url.search.replace(/^\\?/, ''),")
	c.line("host: url.hostname,")
	c.line("server_name: url.hostname,")
	c.line("scheme: url.protocol.replace(/:$/, ''),")
	c.line("remote_addr: (request.headers.get('x-forwarded-for') || '').split(',')[0].trim()")
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
