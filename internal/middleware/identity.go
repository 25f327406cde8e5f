package middleware

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientKey buckets requests whose origin cannot be determined.
// An explicit limitation: shared NATs and absent proxy headers all land here.
const UnknownClientKey = "unknown"

// VisitorIDHeader carries the client-generated visitor identifier used to
// key durable history.
const VisitorIDHeader = "X-Visitor-ID"

// ClientKey derives a best-effort caller identity for rate limiting from
// forwarded-for style headers, falling back to the socket address. This is
// not a security guarantee.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		if key := strings.TrimSpace(fwd); key != "" {
			return key
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}

	return UnknownClientKey
}

// VisitorID extracts the visitor identifier from the request, empty if absent.
func VisitorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(VisitorIDHeader))
}
