package edgegen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// cdnHookGen emits a CloudFront-style edge hook. Work is split across
// the four lifecycle events: redirects and canned responses answer at
// viewer-request, proxy origins are set at origin-request, and response
// headers are added at origin-response so the CDN caches them.
type cdnHookGen struct {
	cfg *nginxconf.Config
}

func (g *cdnHookGen) Target() string        { return TargetCDNHook }
func (g *cdnHookGen) FileExtension() string { return ".js" }

// cdnProxyOrigin parses a proxy target into an origin the hook can set.
// Only http and https origins are expressible.
func cdnProxyOrigin(target string) (*url.URL, bool) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func (g *cdnHookGen) Validate() ValidationResult {
	warns := structuralWarnings(g.cfg)
	var errs []string
	hasProxy := false
	for i, srv := range g.cfg.Servers {
		label := serverLabel(srv, i)
		if srv.SSL != nil {
			warns = append(warns, fmt.Sprintf("server %s: ssl certificates are managed by the cdn distribution and not emitted", label))
		}
		for _, loc := range srv.Locations {
			for _, name := range []string{"fastcgi_pass", "uwsgi_pass"} {
				if extraDirective(loc, name) {
					errs = append(errs, fmt.Sprintf("server %s location %s: %s cannot run at the cdn edge", label, loc.Path, name))
				}
			}
			a := PlanAction(loc)
			if a.Kind == ActionStatic {
				warns = append(warns, fmt.Sprintf("server %s location %s: static path %q must be served by the distribution's origin", label, loc.Path, a.StaticPath))
			}
			if len(a.InternalRewrites) > 0 {
				warns = append(warns, fmt.Sprintf("server %s location %s: rewrite without a redirect flag is not applied by this target", label, loc.Path))
			}
			if a.Kind == ActionProxy {
				target, w := resolveProxyTarget(g.cfg, a.ProxyPass)
				if w != "" {
					warns = append(warns, w)
				}
				if _, ok := cdnProxyOrigin(target); ok {
					hasProxy = true
				} else {
					warns = append(warns, fmt.Sprintf("server %s location %s: proxy_pass %q is not a usable http origin; the hook answers 502", label, loc.Path, a.ProxyPass))
				}
			}
			warns = append(warns, templateWarnings(label, loc)...)
			warns = append(warns, expiresWarning(label, loc)...)
		}
	}
	if hasProxy {
		warns = append(warns, "proxy origins are set per request; cdn providers cap hook execution time and response size")
	}
	return newResult(errs, warns)
}

func (g *cdnHookGen) Generate() (string, error) {
	res := g.Validate()
	if !res.Valid {
		return "", generateError(TargetCDNHook, res)
	}
	c := &codeBuf{}
	c.line("// Code generated by ngx2edge for the cdn-hook target. DO NOT EDIT.")
	c.linef("// Servers: %d, upstreams: %d.", len(g.cfg.Servers), len(g.cfg.Upstreams))
	c.blank()
	c.line("'use strict';")
	c.blank()
	c.line("exports.handler = function (event, context, callback) {")
	c.in()
	c.line("var record = event.Records[0].cf;")
	c.line("var request = record.request;")
	c.line("var eventType = record.config.eventType;")
	c.line("if (eventType === 'viewer-request') {")
	c.in()
	c.line("return callback(null, viewerRequest(request));")
	c.out()
	c.line("}")
	c.line("if (eventType === 'origin-request') {")
	c.in()
	c.line("return callback(null, originRequest(request));")
	c.out()
	c.line("}")
	c.line("if (eventType === 'origin-response') {")
	c.in()
	c.line("return callback(null, originResponse(request, record.response));")
	c.out()
	c.line("}")
	c.line("if (eventType === 'viewer-response') {")
	c.in()
	c.line("return callback(null, viewerResponse(request, record.response));")
	c.out()
	c.line("}")
	c.line("return callback(null, record.response || request);")
	c.out()
	c.line("};")
	g.emitHook(c, "viewerRequest(request)", "request", g.hasViewerContent, g.emitViewerLocation)
	g.emitHook(c, "originRequest(request)", "request", g.hasOriginRequestContent, g.emitOriginRequestLocation)
	g.emitHook(c, "originResponse(request, response)", "response", g.hasOriginResponseContent, g.emitOriginResponseLocation)
	c.blank()
	c.line("function viewerResponse(request, response) {")
	c.in()
	c.line("return response;")
	c.out()
	c.line("}")
	g.emitHelpers(c)
	return c.String(), nil
}

// emitHook writes one lifecycle function, skipping servers with no
// location relevant to it.
func (g *cdnHookGen) emitHook(c *codeBuf, signature, fallthru string, has func(*nginxconf.Location) bool, emit func(*codeBuf, *nginxconf.Location)) {
	c.blank()
	c.linef("function %s {", signature)
	c.in()
	any := false
	for _, srv := range g.cfg.Servers {
		for _, loc := range srv.Locations {
			if has(loc) {
				any = true
			}
		}
	}
	if any {
		c.line("var host = hostOf(request);")
		c.line("var path = request.uri;")
	}
	for i, srv := range g.cfg.Servers {
		var locs []*nginxconf.Location
		for _, loc := range SortLocations(srv.Locations) {
			if has(loc) {
				locs = append(locs, loc)
			}
		}
		if len(locs) == 0 {
			continue
		}
		cond := HostCondition(srv.ServerNames, "host")
		c.blank()
		c.linef("// server %s", serverComment(srv, i))
		wrapped := cond != "true"
		if wrapped {
			c.linef("if (%s) {", cond)
			c.in()
		}
		for _, loc := range locs {
			c.linef("// location %s", locationComment(loc))
			c.linef("if (%s) {", PathCondition(loc, "path"))
			c.in()
			emit(c, loc)
			c.out()
			c.line("}")
		}
		if wrapped {
			c.out()
			c.line("}")
		}
	}
	c.blank()
	c.linef("return %s;", fallthru)
	c.out()
	c.line("}")
}

func (g *cdnHookGen) hasViewerContent(loc *nginxconf.Location) bool {
	a := PlanAction(loc)
	switch a.Kind {
	case ActionRedirect, ActionRespond, ActionRewriteRedirect:
		return true
	case ActionProxy:
		target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
		_, ok := cdnProxyOrigin(target)
		return !ok
	}
	return false
}

func (g *cdnHookGen) hasOriginRequestContent(loc *nginxconf.Location) bool {
	a := PlanAction(loc)
	if a.Kind != ActionProxy {
		return false
	}
	target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
	_, ok := cdnProxyOrigin(target)
	return ok
}

func (g *cdnHookGen) hasOriginResponseContent(loc *nginxconf.Location) bool {
	a := PlanAction(loc)
	switch a.Kind {
	case ActionRedirect, ActionRespond, ActionRewriteRedirect:
		// Headers ride on the generated response at viewer-request.
		return false
	}
	return len(ResponseHeaders(loc.Directives)) > 0
}

func (g *cdnHookGen) emitViewerLocation(c *codeBuf, loc *nginxconf.Location) {
	a := PlanAction(loc)
	headers := ResponseHeaders(loc.Directives)
	switch a.Kind {
	case ActionRedirect:
		g.returnGenerated(c, fmt.Sprintf("redirectResponse(%s, %d)", jsTemplateExpr(a.URL, "request"), a.Code), headers)
	case ActionRespond:
		body := "''"
		if a.Body != "" {
			body = jsTemplateExpr(a.Body, "request")
		}
		g.returnGenerated(c, fmt.Sprintf("plainResponse(%d, %s)", a.Code, body), headers)
	case ActionRewriteRedirect:
		for _, r := range a.RedirectRules {
			re := jsRegex(r.Regex, "")
			c.linef("if (%s.test(path)) {", re)
			c.in()
			g.returnGenerated(c, fmt.Sprintf("redirectResponse(%s, %d)", replaceExpr(re, r.Replacement), RedirectStatus(r)), headers)
			c.out()
			c.line("}")
		}
	case ActionProxy:
		c.linef("// proxy_pass %s has no usable origin", a.ProxyPass)
		c.line("return badGatewayResponse();")
	}
}

// returnGenerated returns a generated response, attaching response
// headers first when the location sets any.
func (g *cdnHookGen) returnGenerated(c *codeBuf, expr string, headers [][2]string) {
	if len(headers) == 0 {
		c.linef("return %s;", expr)
		return
	}
	c.linef("var response = %s;", expr)
	for _, h := range headers {
		c.linef("setHeader(response.headers, %s, %s);", jsStr(h[0]), jsTemplateExpr(h[1], "request"))
	}
	c.line("return response;")
}

func (g *cdnHookGen) emitOriginRequestLocation(c *codeBuf, loc *nginxconf.Location) {
	a := PlanAction(loc)
	target, _ := resolveProxyTarget(g.cfg, a.ProxyPass)
	u, _ := cdnProxyOrigin(target)
	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	base := strings.TrimSuffix(u.Path, "/")
	c.linef("setOrigin(request, %s, %d, %s, %s);", jsStr(u.Hostname()), port, jsStr(u.Scheme), jsStr(base))
	for _, h := range RequestHeaders(loc.Directives) {
		c.linef("setHeader(request.headers, %s, %s);", jsStr(h[0]), jsTemplateExpr(h[1], "request"))
	}
	c.line("return request;")
}

func (g *cdnHookGen) emitOriginResponseLocation(c *codeBuf, loc *nginxconf.Location) {
	for _, h := range ResponseHeaders(loc.Directives) {
		c.linef("setHeader(response.headers, %s, %s);", jsStr(h[0]), jsTemplateExpr(h[1], "request"))
	}
	c.line("return response;")
}

func (g *cdnHookGen) emitHelpers(c *codeBuf) {
	c.blank()
	c.line("function hostOf(request) {")
	c.in()
	c.line("var h = request.headers.host;")
	c.line("return h && h[0] ? h[0].value.split(':')[0].toLowerCase() : '';")
	c.out()
	c.line("}")
	c.blank()
	c.line("function setHeader(headers, name, value) {")
	c.in()
	c.line("headers[name.toLowerCase()] = [{ key: name, value: value }];")
	c.out()
	c.line("}")
	c.blank()
	c.line("function redirectResponse(location, status) {")
	c.in()
	c.line("return {")
	c.in()
	c.line("status: String(status),")
	c.line("statusDescription: statusText(status),")
	c.line("headers: { location: [{ key: 'Location', value: location }] }")
	c.out()
	c.line("};")
	c.out()
	c.line("}")
	c.blank()
	c.line("function statusText(status) {")
	c.in()
	c.line("if (status === 301) { return 'Moved Permanently'; }")
	c.line("if (status === 302) { return 'Found'; }")
	c.line("return 'Redirect';")
	c.out()
	c.line("}")
	c.blank()
	c.line("function plainResponse(status, body) {")
	c.in()
	c.line("return { status: String(status), statusDescription: '', headers: {}, body: body };")
	c.out()
	c.line("}")
	c.blank()
	c.line("function badGatewayResponse() {")
	c.in()
	c.line("return plainResponse(502, 'Bad Gateway');")
	c.out()
	c.line("}")
	c.blank()
	c.line("function setOrigin(request, domain, port, protocol, basePath) {")
	c.in()
	c.line("request.origin = {")
	c.in()
	c.line("custom: {")
	c.in()
	c.line("domainName: domain,")
	c.line("port: port,")
	c.line("protocol: protocol,")
	c.line("path: basePath,")
	c.line("sslProtocols: ['TLSv1.2'],")
	c.line("readTimeout: 30,")
	c.line("keepaliveTimeout: 5,")
	c.line("customHeaders: {}")
	c.out()
	c.line("}")
	c.out()
	c.line("};")
	c.line("setHeader(request.headers, 'Host', domain);")
	c.out()
	c.line("}")
	c.blank()
	c.line("function expandVariables(template, request) {")
	c.in()
	c.line("var query = request.querystring || '';")
	c.line("var vars = {")
	c.in()
	c.line("request_uri: request.uri + (query ? '?' + query : ''),")
	c.line("uri: request.uri,")
	c.line("args: query,")
	c.line("query_string: query,")
	c.line("host: hostOf(request),")
	c.line("server_name: hostOf(request),")
	c.line("scheme: 'https',")
	c.line("remote_addr: request.clientIp || ''")
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
