package logx

import (
	"strings"
	"time"
)

const timeLocalLayout = "2006/01/02 - 15:04:05"

// FormatAccessLine renders one access log line:
//
//	2026/01/02 - 15:04:05 | 200 | 1.5s | 127.0.0.1 | POST /api/convert | request_id=...
//
// Empty fields render as '-' so columns stay aligned for log scrapers.
func FormatAccessLine(
	ts time.Time,
	status int,
	latency time.Duration,
	clientIP string,
	method string,
	path string,
	requestID string,
	color bool,
) string {
	var b strings.Builder
	b.WriteString(ts.Format(timeLocalLayout))
	b.WriteString(" | ")
	b.WriteString(ColorizeStatusWith(status, color))
	b.WriteString(" | ")
	b.WriteString(dashIfEmpty(latency.String()))
	b.WriteString(" | ")
	b.WriteString(dashIfEmpty(clientIP))
	b.WriteString(" | ")
	b.WriteString(dashIfEmpty(method))
	b.WriteByte(' ')
	b.WriteString(dashIfEmpty(path))
	b.WriteString(" | request_id=")
	b.WriteString(dashIfEmpty(requestID))
	return b.String()
}

func dashIfEmpty(s string) string {
	if v := strings.TrimSpace(s); v != "" {
		return v
	}
	return "-"
}
