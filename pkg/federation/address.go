package federation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ParseIdentity parses a canonical identifier. Only absolute http(s) URLs
// with a host are accepted.
func ParseIdentity(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: identifier cannot be empty", ErrMalformedIdentifier)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentifier, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrMalformedIdentifier, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformedIdentifier, raw)
	}
	return u, nil
}

// CanonicalHost returns the lower-cased host of u with the scheme's default
// port elided, e.g. "alpha.example" or "alpha.example:8443".
func CanonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return net.JoinHostPort(host, port)
}

// DomainOf returns the canonical host for either an absolute URL or a bare
// host such as "alpha.example:8443". A bare host is read as https, so ":443"
// is elided and ":80" is kept; plain-http instances must be given as URLs.
func DomainOf(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := ParseIdentity(raw)
	if err != nil {
		return "", err
	}
	return CanonicalHost(u), nil
}

// SameDomain reports whether two identifiers belong to the same instance.
func SameDomain(a, b string) bool {
	da, err := DomainOf(a)
	if err != nil {
		return false
	}
	db, err := DomainOf(b)
	if err != nil {
		return false
	}
	return da == db
}
