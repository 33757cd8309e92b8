package entity

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// blockedPorts are ports that must never be probed: interactive shells, mail,
// DNS, and well-known database/cache services.
var blockedPorts = map[string]bool{
	"22": true, "23": true, "25": true, "53": true,
	"110": true, "143": true, "993": true, "995": true,
	"1433": true, "3306": true, "5432": true, "6379": true, "27017": true,
}

// blockedHostNames are literal hostnames rejected without DNS resolution.
var blockedHostNames = map[string]bool{
	"localhost": true,
	"0.0.0.0":   true,
}

// ValidateURL validates the format and safety of a page URL before any work
// is scheduled for it. It checks that the URL is well-formed, uses an
// http/https scheme, carries no userinfo, and does not address a blocked
// host or port.
//
// This is the syntactic half of the SSRF guard: literal IPs and hostnames
// are checked here, DNS resolution happens in the fetcher immediately before
// the outbound request.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	// DoS protection: enforce maximum URL length
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "url is not parseable"}
	}

	// HTTPまたはHTTPSスキームのみ許可
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	// ホスト名の検証
	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	if parsedURL.User != nil {
		return &ValidationError{Field: "url", Message: "URL must not contain userinfo"}
	}

	host := strings.ToLower(parsedURL.Hostname())
	if blockedHostNames[host] {
		return &ValidationError{Field: "url", Message: "url cannot point to private network"}
	}

	if port := parsedURL.Port(); port != "" && blockedPorts[port] {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("port %s is not allowed", port),
		}
	}

	// リテラルIPはDNSなしで即判定できる
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return &ValidationError{Field: "url", Message: "url cannot point to private network"}
	}

	return nil
}

// IsPrivateIP checks if an IP address is in a private or restricted range.
// This prevents SSRF attacks by blocking access to:
// - localhost (127.0.0.0/8, ::1) and the unspecified address (0.0.0.0, ::)
// - link-local addresses (169.254.0.0/16, fe80::/10)
// - private networks (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, fc00::/7)
// - cloud metadata endpoints (169.254.169.254)
func IsPrivateIP(ip net.IP) bool {
	// localhost / 0.0.0.0
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}

	// private networks: RFC 1918 for IPv4, fc00::/7 (covers fd00::/8) for IPv6
	if ip.IsPrivate() {
		return true
	}

	// link-local (includes cloud metadata 169.254.169.254)
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	return false
}
