package edgegen

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// middlewareGen emits a Next.js-style middleware module in TypeScript.
// Internal rewrites map onto NextResponse.rewrite, so unlike the other
// targets they are applied instead of warned about.
type middlewareGen struct {
	cfg *nginxconf.Config
}

func (g *middlewareGen) Target() string        { return TargetMiddleware }
func (g *middlewareGen) FileExtension() string { return ".ts" }

const (
	proxyRewrite = iota
	proxyExternal
	proxyMalformed
)

// classifyProxyTarget decides how a proxy_pass URL is rendered in
// middleware. Rewrites can only stay on the same deployment, so only
// loopback hosts translate cleanly.
func classifyProxyTarget(target string) (kind int, basePath string) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return proxyMalformed, ""
	}
	base := strings.TrimSuffix(u.Path, "/")
	if isLoopbackHost(u.Hostname()) {
		return proxyRewrite, base
	}
	return proxyExternal, base
}

func isLoopbackHost(host string) bool {
	h := strings.ToLower(host)
	return h == "localhost" || h == "::1" || strings.HasPrefix(h, "127.")
}

func (g *middlewareGen) Validate() ValidationResult {
	warns := structuralWarnings(g.cfg)
	for i, srv := range g.cfg.Servers {
		label := serverLabel(srv, i)
		if srv.SSL != nil {
			warns = append(warns, fmt.Sprintf("server %s: ssl certificate directives are handled by the platform and not emitted", label))
		}
		for _, loc := range srv.Locations {
			a := PlanAction(loc)
			if a.Kind == ActionStatic {
				warns = append(warns, fmt.Sprintf("server %s location %s: static path %q is served by the framework's asset handling, not the middleware", label, loc.Path, a.StaticPath))
			}
			if a.Kind == ActionProxy {
				target, w := resolveProxyTarget(g.cfg, a.ProxyPass)
				if w != "" {
					warns = append(warns, w)
				}
				switch kind, _ := classifyProxyTarget(target); kind {
				case proxyMalformed:
					warns = append(warns, fmt.Sprintf("server %s location %s: proxy_pass %q is not a valid URL; requests pass through", label, loc.Path, a.ProxyPass))
				case proxyExternal:
					warns = append(warns, fmt.Sprintf("server %s location %s: proxy_pass %q targets an external host; the middleware rewrites within the same deployment instead", label, loc.Path, a.ProxyPass))
				}
			}
			warns = append(warns, templateWarnings(label, loc)...)
			warns = append(warns, expiresWarning(label, loc)...)
		}
	}
	return newResult(nil, warns)
}

func (g *middlewareGen) Generate() (string, error) {
	res := g.Validate()
	if !res.Valid {
		return "", generateError(TargetMiddleware, res)
	}
	c := &codeBuf{}
	c.line("// Code generated by ngx2edge for the middleware target. DO NOT EDIT.")
	c.linef("// Servers: %d, upstreams: %d.", len(g.cfg.Servers), len(g.cfg.Upstreams))
	c.blank()
	c.line("import { NextResponse } from 'next/server';")
	c.line("import type { NextRequest } from 'next/server';")
	c.blank()
	c.line("export function middleware(request: NextRequest) {")
	c.in()
	c.line("const url = request.nextUrl;")
	c.line("const host = hostOf(request);")
	c.line("const path = url.pathname;")
	emitServers(c, g.cfg, g.emitLocation)
	c.blank()
	c.line("return NextResponse.next();")
	c.out()
	c.line("}")
	c.blank()
	c.line("export const config = { matcher: '/:path*' };")
	g.emitHelpers(c)
	return c.String(), nil
}

func (g *middlewareGen) emitLocation(c *codeBuf, loc *nginxconf.Location) {
	a := PlanAction(loc)
	headers := ResponseHeaders(loc.Directives)
	c.linef("// location %s", locationComment(loc))
	c.linef("if (%s) {", PathCondition(loc, "path"))
	c.in()
	for _, r := range a.InternalRewrites {
		re := jsRegex(r.Regex, "")
		c.linef("if (%s.test(path)) {", re)
		c.in()
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("rewriteTo(request, %s)", replaceExpr(re, r.Replacement)), headers))
		c.out()
		c.line("}")
	}
	switch a.Kind {
	case ActionRedirect:
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectTo(request, %s, %d)", jsTemplateExpr(a.URL, "request"), a.Code), headers))
	case ActionRespond:
		body := "null"
		if a.Body != "" {
			body = jsTemplateExpr(a.Body, "request")
		}
		c.linef("return %s;", g.withHeaders(fmt.Sprintf("new NextResponse(%s, { status: %d })", body, a.Code), headers))
	case ActionRewriteRedirect:
		for _, r := range a.RedirectRules {
			re := jsRegex(r.Regex, "")
			c.linef("if (%s.test(path)) {", re)
			c.in()
			c.linef("return %s;", g.withHeaders(fmt.Sprintf("redirectTo(request, %s, %d)", replaceExpr(re, r.Replacement), RedirectStatus(r)), headers))
			c.out()
			c.line("}")
		}
	case ActionProxy:
		target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
		switch kind, base := classifyProxyTarget(target); {
		case kind == proxyMalformed:
			c.linef("// proxy_pass %s is not a valid URL; request passes through", a.ProxyPass)
			c.linef("return %s;", g.withHeaders("NextResponse.next()", headers))
		case base == "":
			c.linef("// proxied upstream %s serves this deployment", target)
			c.linef("return %s;", g.withHeaders("NextResponse.next()", headers))
		default:
			c.linef("return %s;", g.withHeaders(fmt.Sprintf("rewriteTo(request, %s + path)", jsStr(base)), headers))
		}
	case ActionStatic:
		c.linef("// static content under %s is served by the framework", jsStr(a.StaticPath))
		c.linef("return %s;", g.withHeaders("NextResponse.next()", headers))
	default:
		c.linef("return %s;", g.withHeaders("NextResponse.next()", headers))
	}
	c.out()
	c.line("}")
}

func (g *middlewareGen) withHeaders(expr string, headers [][2]string) string {
	if len(headers) == 0 {
		return expr
	}
	return fmt.Sprintf("withHeaders(%s, %s, request)", expr, jsHeaderObject(headers))
}

// replaceExpr builds the JS expression rewriting path with a rule,
// expanding variables in the replacement when it carries any.
func replaceExpr(re, replacement string) string {
	expr := fmt.Sprintf("path.replace(%s, %s)", re, jsStr(replacement))
	if CompileTemplate(replacement).HasVars() {
		expr = fmt.Sprintf("expandVariables(%s, request)", expr)
	}
	return expr
}

func (g *middlewareGen) emitHelpers(c *codeBuf) {
	c.blank()
	c.line("function hostOf(request: NextRequest): string {")
	c.in()
	c.line("return (request.headers.get('host') || '').split(':')[0].toLowerCase();")
	c.out()
	c.line("}")
	c.blank()
	c.line("function redirectTo(request: NextRequest, location: string, status: number) {")
	c.in()
	c.line("return NextResponse.redirect(new URL(location, request.url), status);")
	c.out()
	c.line("}")
	c.blank()
	c.line("function rewriteTo(request: NextRequest, pathname: string) {")
	c.in()
	c.line("const url = request.nextUrl.clone();")
	c.line("url.pathname = pathname;")
	c.line("return NextResponse.rewrite(url);")
	c.out()
	c.line("}")
	c.blank()
	c.line("function withHeaders(response: NextResponse, headers: Record<string, string>, request: NextRequest) {")
	c.in()
	c.line("for (const name in headers) {")
	c.in()
	c.line("response.headers.set(name, expandVariables(headers[name], request));")
	c.out()
	c.line("}")
	c.line("return response;")
	c.out()
	c.line("}")
	c.blank()
	c.line("function expandVariables(template: string, request: NextRequest): string {")
	c.in()
	c.line("const url = request.nextUrl;")
	c.line("const vars: Record<string, string> = {")
	c.in()
	c.line("request_uri: url.pathname + url.search,")
	c.line("uri: url.pathname,")
	c.line("args: url.search.replace(/^\\?/, ''),")
	c.line("query_string: url.search.replace(/^\\?/, ''),")
	c.line("host: hostOf(request),")
	c.line("server_name: hostOf(request),")
	c.line("scheme: url.protocol.replace(/:$/, ''),")
	c.line("remote_addr: (request.headers.get('x-forwarded-for') || '').split(',')[0].trim(),")
	c.out()
	c.line("};")
	c.line("return template.replace(/\\$(\\$|[A-Za-z0-9_]+)/g, (m, name) => {")
	c.in()
	c.line("if (name === '$') { return '$'; }")
	c.line("if (/^[0-9]+$/.test(name)) { return m; }")
	c.line("return Object.prototype.hasOwnProperty.call(vars, name) ? vars[name] : '';")
	c.out()
	c.line("});")
	c.out()
	c.line("}")
}
