package claimapi

import (
	"net"
	"net/http"
	"strings"
)

// unknownClient keys rate limits for requests whose source address cannot be
// determined. They all share one bucket on purpose.
const unknownClient = "unknown"

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := firstForwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return unknownClient
}

func firstForwardedIP(raw string) string {
	if raw == "" {
		return ""
	}
	first, _, _ := strings.Cut(raw, ",")
	return strings.TrimSpace(first)
}
