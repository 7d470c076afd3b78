package edgegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// HostCondition synthesizes a boolean JS expression over hostExpr (an
// already-lowercased hostname) from a server_name list. An empty list, a
// literal "*" or the "_" catch-all matches every host and yields the
// constant "true". Patterns containing "*" become anchored regexes, plain
// names compare by equality, multiple patterns are OR-ed.
func HostCondition(serverNames []string, hostExpr string) string {
	names := make([]string, 0, len(serverNames))
	for _, n := range serverNames {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if n == "*" || n == "_" {
			return "true"
		}
		names = append(names, strings.ToLower(n))
	}
	if len(names) == 0 {
		return "true"
	}
	conds := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(n, "*") {
			conds = append(conds, jsRegex(hostPattern(n), "")+".test("+hostExpr+")")
			continue
		}
		conds = append(conds, hostExpr+" === "+jsStr(n))
	}
	return strings.Join(conds, " || ")
}

// hostPattern converts a wildcard server name into an anchored regex
// source: "*" becomes ".*", everything else is escaped literally.
func hostPattern(name string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range name {
		switch r {
		case '*':
			b.WriteString(".*")
		case '.', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('$')
	return b.String()
}

// PathCondition synthesizes a boolean JS expression over pathExpr for one
// location, keyed by its modifier:
//
//	=   equality
//	^~  prefix (startsWith)
//	~   regex, case-sensitive
//	~*  regex, case-insensitive
//	""  prefix: a path ending in "/" uses startsWith, anything else matches
//	    exactly or as a prefix followed by "/"
func PathCondition(loc *nginxconf.Location, pathExpr string) string {
	path := loc.Path
	switch loc.Modifier {
	case "=":
		return pathExpr + " === " + jsStr(path)
	case "^~":
		return pathExpr + ".startsWith(" + jsStr(path) + ")"
	case "~":
		return jsRegex(path, "") + ".test(" + pathExpr + ")"
	case "~*":
		return jsRegex(path, "i") + ".test(" + pathExpr + ")"
	default:
		if strings.HasSuffix(path, "/") {
			return pathExpr + ".startsWith(" + jsStr(path) + ")"
		}
		return "(" + pathExpr + " === " + jsStr(path) + " || " + pathExpr + ".startsWith(" + jsStr(path+"/") + "))"
	}
}

// SortLocations orders a server's locations by match specificity: exact
// locations first, then descending path length; declaration order breaks
// ties. The input slice is not modified.
func SortLocations(locs []*nginxconf.Location) []*nginxconf.Location {
	out := make([]*nginxconf.Location, len(locs))
	copy(out, locs)
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Modifier == "=", out[j].Modifier == "="
		if ei != ej {
			return ei
		}
		return len(out[i].Path) > len(out[j].Path)
	})
	return out
}

// ActionKind identifies what a location does with a matched request.
type ActionKind int

const (
	// ActionPassthrough hands the request to the target's default flow.
	ActionPassthrough ActionKind = iota
	// ActionRedirect answers with a 3xx Location redirect.
	ActionRedirect
	// ActionRespond answers directly with a status and optional body.
	ActionRespond
	// ActionRewriteRedirect answers with a redirect built by regex replace.
	ActionRewriteRedirect
	// ActionProxy forwards to an upstream, in whatever form the target has.
	ActionProxy
	// ActionStatic marks static-file intent; no target serves files itself.
	ActionStatic
)

func (k ActionKind) String() string {
	switch k {
	case ActionRedirect:
		return "redirect"
	case ActionRespond:
		return "respond"
	case ActionRewriteRedirect:
		return "rewrite-redirect"
	case ActionProxy:
		return "proxy"
	case ActionStatic:
		return "static"
	default:
		return "passthrough"
	}
}

// Action is the planned behavior of one location.
type Action struct {
	Kind ActionKind

	// Redirect / respond fields, from a return directive.
	Code int
	URL  string
	Body string

	// Rules flagged redirect or permanent, for ActionRewriteRedirect.
	RedirectRules []nginxconf.RewriteRule

	// Unflagged rewrite rules, carried for targets that can rewrite
	// internally. Targets without that capability report them as warnings.
	InternalRewrites []nginxconf.RewriteRule

	// Proxy target, for ActionProxy.
	ProxyPass string

	// Static path, for ActionStatic.
	StaticPath string
	Alias      bool
}

// PlanAction decides what a location does, first matching rule wins:
// 3xx return, other return, redirect-flagged rewrites, proxy_pass,
// root/alias, pass-through.
func PlanAction(loc *nginxconf.Location) Action {
	d := loc.Directives
	var redirects, internal []nginxconf.RewriteRule
	for _, r := range d.Rewrites {
		if r.HasFlag("redirect") || r.HasFlag("permanent") {
			redirects = append(redirects, r)
		} else {
			internal = append(internal, r)
		}
	}
	a := Action{InternalRewrites: internal}
	switch {
	case d.Return != nil && d.Return.Code >= 300 && d.Return.Code < 400:
		a.Kind = ActionRedirect
		a.Code = d.Return.Code
		a.URL = d.Return.URL
		if a.URL == "" {
			a.URL = d.Return.Text
		}
	case d.Return != nil:
		a.Kind = ActionRespond
		a.Code = d.Return.Code
		a.Body = d.Return.Text
		if a.Body == "" {
			a.Body = d.Return.URL
		}
	case len(redirects) > 0:
		a.Kind = ActionRewriteRedirect
		a.RedirectRules = redirects
	case d.ProxyPass != "":
		a.Kind = ActionProxy
		a.ProxyPass = d.ProxyPass
	case d.Alias != "":
		a.Kind = ActionStatic
		a.StaticPath = d.Alias
		a.Alias = true
	case d.Root != "":
		a.Kind = ActionStatic
		a.StaticPath = d.Root
	default:
		a.Kind = ActionPassthrough
	}
	return a
}

// RedirectStatus maps a rewrite rule's flag to its redirect code: 301 for
// permanent, 302 otherwise.
func RedirectStatus(r nginxconf.RewriteRule) int {
	if r.HasFlag("permanent") {
		return 301
	}
	return 302
}

// ResponseHeaders returns the add_header pairs of a location in stable
// (name-sorted) order, with a Cache-Control entry synthesized from expires
// unless add_header already sets one.
func ResponseHeaders(d nginxconf.LocationDirectives) [][2]string {
	names := make([]string, 0, len(d.AddHeaders))
	hasCacheControl := false
	for name := range d.AddHeaders {
		names = append(names, name)
		if strings.EqualFold(name, "Cache-Control") {
			hasCacheControl = true
		}
	}
	sort.Strings(names)
	out := make([][2]string, 0, len(names)+1)
	if !hasCacheControl {
		if cc, err := ParseExpires(d.Expires); err == nil && cc != "" {
			out = append(out, [2]string{"Cache-Control", cc})
		}
	}
	for _, name := range names {
		out = append(out, [2]string{name, d.AddHeaders[name]})
	}
	return out
}

// RequestHeaders returns the proxy_set_header pairs in stable order.
func RequestHeaders(d nginxconf.LocationDirectives) [][2]string {
	names := make([]string, 0, len(d.ProxySetHeaders))
	for name := range d.ProxySetHeaders {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([][2]string, 0, len(names))
	for _, name := range names {
		out = append(out, [2]string{name, d.ProxySetHeaders[name]})
	}
	return out
}

var expiresUnitSeconds = map[byte]int{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
	'M': 2592000,
	'y': 31536000,
}

// ParseExpires maps an expires directive value to a Cache-Control value.
// "off" and the empty string mean no header and no error; values that are
// not a plain time are an error the caller reports as a warning.
func ParseExpires(v string) (string, error) {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "modified "))
	switch v {
	case "", "off":
		return "", nil
	case "max":
		return "max-age=315360000", nil
	case "epoch":
		return "no-cache", nil
	}
	if strings.HasPrefix(v, "-") {
		return "no-cache", nil
	}
	num := v
	mult := 1
	if last := v[len(v)-1]; last < '0' || last > '9' {
		m, ok := expiresUnitSeconds[last]
		if !ok {
			return "", fmt.Errorf("expires value %q is not understood", v)
		}
		mult = m
		num = v[:len(v)-1]
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", fmt.Errorf("expires value %q is not understood", v)
	}
	return "max-age=" + strconv.Itoa(n*mult), nil
}
