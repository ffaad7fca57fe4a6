package ratelimit

import (
	"net"
	"strings"
)

// AnonymousPrincipal is the principal name of unauthenticated callers
const AnonymousPrincipal = "anonymousUser"

// ResolveIdentity picks the key a caller is limited by: the authenticated
// principal, else the first hop of X-Forwarded-For, else the peer address.
func ResolveIdentity(principal, forwardedFor, remoteAddr string) string {
	if principal != "" && principal != AnonymousPrincipal {
		return principal
	}
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
