package audit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address for an audit entry.
// Proxy headers win over the socket peer; X-Forwarded-For may carry a
// chain, of which the first hop is the client.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if chain := r.Header.Get("X-Forwarded-For"); chain != "" {
		first, _, _ := strings.Cut(chain, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
