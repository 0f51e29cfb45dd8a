package assistantjs

import (
	"net"
	"net/url"
	"os"
	"strings"
)

const (
	// DevBaseURL is used whenever the host origin is a loopback address.
	DevBaseURL = "http://localhost:8000/api/public"

	apiPrefix = "/api/public"
)

// OriginResolver returns the origin of the host embedding the client, e.g.
// "https://shop.example.com". An empty string means unknown.
type OriginResolver func() string

// StaticOrigin always reports origin.
func StaticOrigin(origin string) OriginResolver {
	return func() string { return origin }
}

// EnvOrigin reads ASSISTANTJS_ORIGIN.
func EnvOrigin() string {
	return strings.TrimSpace(os.Getenv("ASSISTANTJS_ORIGIN"))
}

// DefaultBaseURL derives the API base URL from a host origin.
func DefaultBaseURL(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", newError(KindValidation, "no base URL given and host origin is unknown")
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", newError(KindValidation, "host origin is not a valid URL")
	}
	if isLoopbackHost(u.Hostname()) {
		return DevBaseURL, nil
	}
	return u.Scheme + "://" + u.Host + apiPrefix, nil
}

// checkBaseURL normalizes raw and enforces HTTPS outside loopback hosts.
func checkBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", newError(KindValidation, "base URL is not a valid absolute URL")
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !isLoopbackHost(u.Hostname()) {
			return "", newError(KindSecurity, "HTTPS is required outside local development")
		}
	default:
		return "", newError(KindSecurity, "unsupported URL scheme "+u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func isLoopbackHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
