package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders are consulted in order before RemoteAddr. Only trust them
// when the service runs behind a proxy that overwrites them.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the client address from the first header in DefaultHeaders
// holding a valid IP, falling back to RemoteAddr. X-Forwarded-For yields its
// first valid entry. Returns "" when nothing parses.
func GetIP(r *http.Request) string {
	return FromHeaders(r, DefaultHeaders...)
}

// FromHeaders works like GetIP with a custom header list. With no headers
// only RemoteAddr is used.
func FromHeaders(r *http.Request, headers ...string) string {
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
