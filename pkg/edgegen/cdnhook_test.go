package edgegen

import (
	"strings"
	"testing"
)

func generateCDNHook(t *testing.T, src string) (string, ValidationResult) {
	t.Helper()
	g, err := New(TargetCDNHook, buildConfig(t, src))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := g.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return out, g.Validate()
}

func TestCDNHookDispatch(t *testing.T) {
	out, _ := generateCDNHook(t, redirectScenario)
	for _, want := range []string{
		"'use strict';",
		"exports.handler = function (event, context, callback) {",
		"var record = event.Records[0].cf;",
		"if (eventType === 'viewer-request') {",
		"if (eventType === 'origin-request') {",
		"if (eventType === 'origin-response') {",
		"if (eventType === 'viewer-response') {",
		"return callback(null, record.response || request);",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing:\n%s", want, out)
		}
	}
}

func TestCDNHookRedirectAtViewerRequest(t *testing.T) {
	out, _ := generateCDNHook(t, redirectScenario)
	viewer := strings.Index(out, "function viewerRequest(request) {")
	origin := strings.Index(out, "function originRequest(request) {")
	redirect := strings.Index(out, "return redirectResponse(expandVariables('https://new.example.com$request_uri', request), 301);")
	if viewer < 0 || origin < 0 || redirect < 0 {
		t.Fatalf("missing markers (viewer=%d origin=%d redirect=%d):\n%s", viewer, origin, redirect, out)
	}
	if !(viewer < redirect && redirect < origin) {
		t.Fatalf("redirect emitted outside viewerRequest:\n%s", out)
	}
}

func TestCDNHookProxySetsOrigin(t *testing.T) {
	out, res := generateCDNHook(t, proxyScenario)
	if !strings.Contains(out, "setOrigin(request, 'backend', 3000, 'http', '');") {
		t.Fatalf("origin missing:\n%s", out)
	}
	// proxy_set_header overrides follow the origin swap.
	host := strings.Index(out, "setHeader(request.headers, 'Host', expandVariables('$host', request));")
	originCall := strings.Index(out, "setOrigin(request, 'backend'")
	if host < 0 || originCall < 0 || host < originCall {
		t.Fatalf("header override order wrong (host=%d origin=%d):\n%s", host, originCall, out)
	}
	if !strings.Contains(out, "setHeader(request.headers, 'X-Real-IP', expandVariables('$remote_addr', request));") {
		t.Fatalf("x-real-ip missing:\n%s", out)
	}
	if !hasWarning(res.Warnings, "cap hook execution time") {
		t.Fatalf("size note missing: %v", res.Warnings)
	}
}

func TestCDNHookHTTPSOriginDefaultPort(t *testing.T) {
	src := `
server {
    listen 80;
    server_name tlsorigin.test;
    location / {
        proxy_pass https://upstream.internal/;
    }
}
`
	out, _ := generateCDNHook(t, src)
	if !strings.Contains(out, "setOrigin(request, 'upstream.internal', 443, 'https', '');") {
		t.Fatalf("https origin missing:\n%s", out)
	}
}

func TestCDNHookResponseHeadersAtOriginResponse(t *testing.T) {
	src := `
server {
    listen 80;
    server_name cache.test;
    location /static/ {
        root /var/www;
        expires 30d;
        add_header X-Frame-Options DENY;
    }
}
`
	out, _ := generateCDNHook(t, src)
	fn := strings.Index(out, "function originResponse(request, response) {")
	cc := strings.Index(out, "setHeader(response.headers, 'Cache-Control', 'max-age=2592000');")
	xfo := strings.Index(out, "setHeader(response.headers, 'X-Frame-Options', 'DENY');")
	if fn < 0 || cc < 0 || xfo < 0 {
		t.Fatalf("missing markers (fn=%d cc=%d xfo=%d):\n%s", fn, cc, xfo, out)
	}
	if cc < fn || xfo < fn {
		t.Fatalf("headers emitted before originResponse:\n%s", out)
	}
}

func TestCDNHookFastcgiIsError(t *testing.T) {
	src := `
server {
    listen 80;
    server_name php.test;
    location ~ \.php$ {
        fastcgi_pass unix:/run/php.sock;
    }
}
`
	g, err := New(TargetCDNHook, buildConfig(t, src))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := g.Validate()
	if res.Valid {
		t.Fatalf("fastcgi accepted: %+v", res)
	}
	if !strings.Contains(res.Errors[0], "fastcgi_pass cannot run at the cdn edge") {
		t.Fatalf("errors = %v", res.Errors)
	}
	if _, err := g.Generate(); err == nil {
		t.Fatalf("generate succeeded with errors")
	}
}

func TestCDNHookMalformedProxyAnswers502(t *testing.T) {
	src := `
server {
    listen 80;
    server_name bad.test;
    location /api/ {
        proxy_pass "http://exa mple.com";
    }
}
`
	out, res := generateCDNHook(t, src)
	if !hasWarning(res.Warnings, "answers 502") {
		t.Fatalf("502 warning missing: %v", res.Warnings)
	}
	if !strings.Contains(out, "return badGatewayResponse();") {
		t.Fatalf("502 response missing:\n%s", out)
	}
}

func TestCDNHookNonHTTPSchemeAnswers502(t *testing.T) {
	src := `
server {
    listen 80;
    server_name grpc.test;
    location / {
        proxy_pass grpc://backend:50051;
    }
}
`
	out, res := generateCDNHook(t, src)
	if !hasWarning(res.Warnings, "answers 502") {
		t.Fatalf("502 warning missing: %v", res.Warnings)
	}
	if !strings.Contains(out, "return badGatewayResponse();") {
		t.Fatalf("502 response missing:\n%s", out)
	}
}

func TestCDNHookGeneratedResponseCarriesHeaders(t *testing.T) {
	src := `
server {
    listen 80;
    server_name hdr.test;
    location = /gone {
        return 410 "gone for good";
        add_header X-Reason retired;
    }
}
`
	out, _ := generateCDNHook(t, src)
	if !strings.Contains(out, "var response = plainResponse(410, 'gone for good');") {
		t.Fatalf("plain response missing:\n%s", out)
	}
	if !strings.Contains(out, "setHeader(response.headers, 'X-Reason', 'retired');") {
		t.Fatalf("generated header missing:\n%s", out)
	}
}
