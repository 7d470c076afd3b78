package edgegen

import (
	"strings"
	"testing"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

func TestHostCondition(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{nil, "true"},
		{[]string{}, "true"},
		{[]string{"*"}, "true"},
		{[]string{"_"}, "true"},
		{[]string{"example.com"}, "host === 'example.com'"},
		{[]string{"Example.COM"}, "host === 'example.com'"},
		{[]string{"example.com", "www.example.com"}, "host === 'example.com' || host === 'www.example.com'"},
		{[]string{"*.example.com"}, "/^.*\\.example\\.com$/.test(host)"},
		{[]string{"", "  "}, "true"},
		{[]string{"a.test", "*"}, "true"},
	}
	for _, tc := range cases {
		if got := HostCondition(tc.names, "host"); got != tc.want {
			t.Errorf("HostCondition(%v) = %q, want %q", tc.names, got, tc.want)
		}
	}
}

func TestHostConditionCustomExpr(t *testing.T) {
	if got := HostCondition([]string{"a.test"}, "req.host"); got != "req.host === 'a.test'" {
		t.Fatalf("got %q", got)
	}
}

func TestPathCondition(t *testing.T) {
	cases := []struct {
		modifier string
		path     string
		want     string
	}{
		{"=", "/health", "path === '/health'"},
		{"^~", "/static/", "path.startsWith('/static/')"},
		{"~", `\.(jpg|png)$`, `/\.(jpg|png)$/.test(path)`},
		{"~*", `\.(jpg|png)$`, `/\.(jpg|png)$/i.test(path)`},
		{"~", "^/old/(.*)$", `/^\/old\/(.*)$/.test(path)`},
		{"", "/api/", "path.startsWith('/api/')"},
		{"", "/api", "(path === '/api' || path.startsWith('/api/'))"},
		{"", "/", "path.startsWith('/')"},
	}
	for _, tc := range cases {
		loc := &nginxconf.Location{Path: tc.path, Modifier: tc.modifier}
		if got := PathCondition(loc, "path"); got != tc.want {
			t.Errorf("PathCondition(%q %q) = %q, want %q", tc.modifier, tc.path, got, tc.want)
		}
	}
}

func TestSortLocations(t *testing.T) {
	locs := []*nginxconf.Location{
		{Path: "/"},
		{Path: "/api/"},
		{Path: "/health", Modifier: "="},
		{Path: "/api/v2/"},
	}
	sorted := SortLocations(locs)
	want := []string{"/health", "/api/v2/", "/api/", "/"}
	for i, loc := range sorted {
		if loc.Path != want[i] {
			t.Fatalf("position %d = %q, want %q", i, loc.Path, want[i])
		}
	}
	// The input order stays untouched.
	if locs[0].Path != "/" {
		t.Fatalf("SortLocations mutated its input")
	}
}

func TestSortLocationsStable(t *testing.T) {
	a := &nginxconf.Location{Path: "/aaa"}
	b := &nginxconf.Location{Path: "/bbb"}
	sorted := SortLocations([]*nginxconf.Location{a, b})
	if sorted[0] != a || sorted[1] != b {
		t.Fatalf("equal-length locations were reordered")
	}
}

func TestPlanActionReturnRedirect(t *testing.T) {
	loc := &nginxconf.Location{
		Path: "/old",
		Directives: nginxconf.LocationDirectives{
			Return: &nginxconf.Return{Code: 301, URL: "https://new.example.com$request_uri"},
		},
	}
	a := PlanAction(loc)
	if a.Kind != ActionRedirect || a.Code != 301 || a.URL != "https://new.example.com$request_uri" {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestPlanActionReturnRespond(t *testing.T) {
	loc := &nginxconf.Location{
		Path: "/gone",
		Directives: nginxconf.LocationDirectives{
			Return: &nginxconf.Return{Code: 404, Text: "not here"},
		},
	}
	a := PlanAction(loc)
	if a.Kind != ActionRespond || a.Code != 404 || a.Body != "not here" {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestPlanActionReturnBeatsProxy(t *testing.T) {
	loc := &nginxconf.Location{
		Path: "/x",
		Directives: nginxconf.LocationDirectives{
			Return:    &nginxconf.Return{Code: 302, URL: "/y"},
			ProxyPass: "http://backend:3000",
		},
	}
	if a := PlanAction(loc); a.Kind != ActionRedirect {
		t.Fatalf("kind = %v, want redirect", a.Kind)
	}
}

func TestPlanActionRewriteRedirect(t *testing.T) {
	loc := &nginxconf.Location{
		Path: "/old",
		Directives: nginxconf.LocationDirectives{
			Rewrites: []nginxconf.RewriteRule{
				{Regex: "^/old/(.*)$", Replacement: "/new/$1", Flags: []string{"permanent"}},
			},
		},
	}
	a := PlanAction(loc)
	if a.Kind != ActionRewriteRedirect || len(a.RedirectRules) != 1 {
		t.Fatalf("unexpected action %+v", a)
	}
	if got := RedirectStatus(a.RedirectRules[0]); got != 301 {
		t.Fatalf("RedirectStatus = %d, want 301", got)
	}
}

func TestPlanActionInternalRewriteFallsThrough(t *testing.T) {
	loc := &nginxconf.Location{
		Path: "/app",
		Directives: nginxconf.LocationDirectives{
			Rewrites:  []nginxconf.RewriteRule{{Regex: "^/app/(.*)$", Replacement: "/$1", Flags: []string{"last"}}},
			ProxyPass: "http://127.0.0.1:8000",
		},
	}
	a := PlanAction(loc)
	if a.Kind != ActionProxy {
		t.Fatalf("kind = %v, want proxy", a.Kind)
	}
	if len(a.InternalRewrites) != 1 || len(a.RedirectRules) != 0 {
		t.Fatalf("rewrite split wrong: %+v", a)
	}
}

func TestPlanActionStatic(t *testing.T) {
	loc := &nginxconf.Location{
		Path:       "/static/",
		Directives: nginxconf.LocationDirectives{Root: "/var/www"},
	}
	a := PlanAction(loc)
	if a.Kind != ActionStatic || a.StaticPath != "/var/www" || a.Alias {
		t.Fatalf("unexpected action %+v", a)
	}

	loc.Directives.Alias = "/srv/files/"
	a = PlanAction(loc)
	if a.Kind != ActionStatic || a.StaticPath != "/srv/files/" || !a.Alias {
		t.Fatalf("alias should win over root: %+v", a)
	}
}

func TestPlanActionPassthrough(t *testing.T) {
	loc := &nginxconf.Location{Path: "/"}
	if a := PlanAction(loc); a.Kind != ActionPassthrough {
		t.Fatalf("kind = %v, want passthrough", a.Kind)
	}
}

func TestRedirectStatus(t *testing.T) {
	perm := nginxconf.RewriteRule{Flags: []string{"Permanent"}}
	if got := RedirectStatus(perm); got != 301 {
		t.Fatalf("permanent = %d, want 301", got)
	}
	red := nginxconf.RewriteRule{Flags: []string{"redirect"}}
	if got := RedirectStatus(red); got != 302 {
		t.Fatalf("redirect = %d, want 302", got)
	}
}

func TestResponseHeadersExpires(t *testing.T) {
	d := nginxconf.LocationDirectives{
		Expires:    "30d",
		AddHeaders: map[string]string{"X-Frame-Options": "DENY", "Access-Control-Allow-Origin": "*"},
	}
	got := ResponseHeaders(d)
	want := [][2]string{
		{"Cache-Control", "max-age=2592000"},
		{"Access-Control-Allow-Origin", "*"},
		{"X-Frame-Options", "DENY"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("header %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResponseHeadersExplicitCacheControlWins(t *testing.T) {
	d := nginxconf.LocationDirectives{
		Expires:    "30d",
		AddHeaders: map[string]string{"cache-control": "no-store"},
	}
	got := ResponseHeaders(d)
	if len(got) != 1 || got[0][1] != "no-store" {
		t.Fatalf("got %v", got)
	}
}

func TestRequestHeadersSorted(t *testing.T) {
	d := nginxconf.LocationDirectives{
		ProxySetHeaders: map[string]string{"X-Real-IP": "$remote_addr", "Host": "$host"},
	}
	got := RequestHeaders(d)
	if len(got) != 2 || got[0][0] != "Host" || got[1][0] != "X-Real-IP" {
		t.Fatalf("got %v", got)
	}
}

func TestParseExpires(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"off", ""},
		{"max", "max-age=315360000"},
		{"epoch", "no-cache"},
		{"-1", "no-cache"},
		{"30d", "max-age=2592000"},
		{"1h", "max-age=3600"},
		{"45m", "max-age=2700"},
		{"3600", "max-age=3600"},
		{"2w", "max-age=1209600"},
		{"1y", "max-age=31536000"},
		{"modified 1h", "max-age=3600"},
	}
	for _, tc := range cases {
		got, err := ParseExpires(tc.in)
		if err != nil {
			t.Errorf("ParseExpires(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseExpires(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseExpiresBad(t *testing.T) {
	if _, err := ParseExpires("tomorrow"); err == nil || !strings.Contains(err.Error(), "not understood") {
		t.Fatalf("error = %v", err)
	}
}
