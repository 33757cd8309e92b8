// Package urlutil normalizes page URLs and derives the per-site keys used by
// the discovery rule table, the site-profile table, and the result cache.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// Normalize canonicalizes a page URL. The operation is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
//
// Rules:
//   - scheme and host are lowercased
//   - a default port (:80 for http, :443 for https) is stripped
//   - the fragment is dropped
//   - a trailing slash is stripped unless the path is the root
//   - the query string is preserved (it participates in cache keys)
//   - userinfo is rejected
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty url")
	}
	if len(rawURL) > maxURLLength {
		return "", fmt.Errorf("url exceeds %d characters", maxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	if u.User != nil {
		return "", fmt.Errorf("userinfo not allowed")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// デフォルトポートは落とす
	if (u.Scheme == "http" && u.Port() == "80") || (u.Scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
	}

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Origin returns "scheme://host[:port]" for an absolute URL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute url: %s", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// RegistrableDomain returns the eTLD+1 for the URL's hostname
// (www.vnexpress.net → vnexpress.net). When the public-suffix list cannot
// produce one (IP literals, single labels), the lowercased hostname itself is
// returned so lookups still have a stable key.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

// FirstPathSegment returns the first non-empty path segment of the URL, or
// "" for a root request. Used by pathToRss discovery patterns.
func FirstPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}

// IsRootPath reports whether the URL addresses the site root ("" or "/").
func IsRootPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == "" || u.Path == "/"
}

// ResolveRef resolves a possibly-relative href against a base URL and
// returns the absolute form. Empty hrefs and unparseable inputs yield "".
func ResolveRef(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
