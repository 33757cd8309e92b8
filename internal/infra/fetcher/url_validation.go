// Package fetcher implements the origin fetcher: rate-shaped, retrying,
// circuit-broken HTTP access to arbitrary page and feed URLs.
package fetcher

import (
	"fmt"
	"net"
	"net/url"

	"pagefeed/internal/domain/entity"
)

// validateURL validates a URL for security before making an HTTP request.
// This function prevents Server-Side Request Forgery (SSRF) attacks by:
//   - Checking URL scheme, host, userinfo, and port (syntactic checks)
//   - Resolving DNS and checking every returned address against the private
//     and link-local ranges
//
// The syntactic half lives in entity.ValidateURL so that handlers can reject
// bad input with a 400 before any work is scheduled; this function re-runs it
// and adds the resolution step immediately before I/O, including on every
// redirect hop.
//
// When denyPrivateIPs is false (httptest servers in tests) only the scheme
// and host shape are checked.
func validateURL(urlStr string, denyPrivateIPs bool) error {
	if !denyPrivateIPs {
		u, err := url.Parse(urlStr)
		if err != nil {
			return &entity.ValidationError{Field: "url", Message: "url is not parseable"}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return &entity.ValidationError{Field: "url", Message: "URL must use http or https scheme"}
		}
		if u.Host == "" {
			return &entity.ValidationError{Field: "url", Message: "URL must have a valid host"}
		}
		return nil
	}

	if err := entity.ValidateURL(urlStr); err != nil {
		return err
	}

	hostname := hostnameOf(urlStr)

	// リテラルIPはentity.ValidateURLで判定済み
	if net.ParseIP(hostname) != nil {
		return nil
	}

	// DNS resolution to check for private IPs
	// This prevents SSRF attacks where an attacker-controlled name points
	// into the internal network.
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return entity.NewError(entity.KindOriginUnreachable, urlStr,
			fmt.Errorf("DNS lookup failed for %s: %w", hostname, err))
	}

	for _, ip := range ips {
		if entity.IsPrivateIP(ip) {
			return &entity.ValidationError{
				Field:   "url",
				Message: fmt.Sprintf("hostname %q resolves to private address %s", hostname, ip),
			}
		}
	}

	return nil
}
