// Package clientip extracts the real client IP address from HTTP requests,
// accounting for common proxy and CDN headers.
//
// Headers are consulted in priority order: CF-Connecting-IP (Cloudflare),
// DO-Connecting-IP (DigitalOcean), X-Forwarded-For (leftmost entry),
// X-Real-IP, then the connection's RemoteAddr. Every candidate is validated
// and normalized; the unspecified address (0.0.0.0, ::) is rejected. GetIP
// never panics and always returns a string.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Proxy headers in priority order, most trustworthy sources first.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client's IP address for the request. Falls back to the
// raw RemoteAddr when no header carries a valid address.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may hold a chain: "client, proxy1, proxy2".
		// The leftmost entry is the original client.
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}

		if ip, ok := parseIP(strings.TrimSpace(value)); ok {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return r.RemoteAddr
}

// parseIP validates and normalizes a candidate address.
func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
