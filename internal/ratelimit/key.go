package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extracts the client identity a request is counted against.
type KeyFunc func(r *http.Request) string

// RemoteAddrKeyFunc keys on the connection's peer address. Use when the
// service is reachable directly.
func RemoteAddrKeyFunc(r *http.Request) string {
	return remoteIP(r.RemoteAddr)
}

// ForwardedKeyFunc keys on the first X-Forwarded-For entry, falling back to
// X-Real-IP and then the peer address. Only safe behind a proxy that
// overwrites these headers.
func ForwardedKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remoteIP(r.RemoteAddr)
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}
