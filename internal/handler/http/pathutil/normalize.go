package pathutil

import "strings"

// knownPaths is the set of routes the server actually registers. Every route
// is static, so normalization is a plain set lookup rather than the regex
// templating an ID-based API would need.
var knownPaths = map[string]struct{}{
	"/feed":        {},
	"/feed/atom":   {},
	"/preview":     {},
	"/metadata":    {},
	"/validate":    {},
	"/cache":       {},
	"/cache/stats": {},
	"/health":      {},
	"/ready":       {},
	"/live":        {},
	"/metrics":     {},
}

// unknownPath is the collapsed label for paths outside the route table.
const unknownPath = "/other"

// NormalizePath maps a request path to a metrics label with bounded
// cardinality. Registered routes pass through unchanged; anything else
// (scanner probes, typos, old clients) collapses to a single label so the
// path dimension cannot grow without bound.
//
// Query parameters and trailing slashes are stripped first:
//
//	NormalizePath("/feed?url=https://a.com") // "/feed"
//	NormalizePath("/preview/")               // "/preview"
//	NormalizePath("/wp-login.php")           // "/other"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return unknownPath
}

// ExpectedCardinality returns the number of distinct values NormalizePath
// can produce, for alerting on metrics label growth.
func ExpectedCardinality() int {
	return len(knownPaths) + 1
}
