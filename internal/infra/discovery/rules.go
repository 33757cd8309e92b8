package discovery

import (
	"strings"

	"pagefeed/internal/config"
	"pagefeed/internal/pkg/urlutil"
)

// builtinRules maps registrable domains to ordered candidate patterns for
// sites whose feed layout is known. An overlay from the rules file merges on
// top, replacing the pattern list for domains it names.
func builtinRules() map[string][]config.RulePattern {
	return map[string][]config.RulePattern{
		"vnexpress.net": {
			{Kind: config.PatternPathToRSS, Template: "/rss/{s}.rss", Root: "/rss/trang-chu.rss"},
		},
		"techcrunch.com": {
			{Kind: config.PatternFixed, Path: "/feed/"},
		},
		"thanhnien.vn": {
			{Kind: config.PatternPathToRSS, Template: "/rss/{s}.rss", Root: "/rss/home.rss"},
		},
		"theverge.com": {
			{Kind: config.PatternFixed, Path: "/rss/index.xml"},
		},
		"arstechnica.com": {
			{Kind: config.PatternFixed, Path: "/feed/"},
		},
	}
}

// mergeRules overlays the configured rules on the built-in table.
func mergeRules(overlay map[string][]config.RulePattern) map[string][]config.RulePattern {
	merged := builtinRules()
	for domain, patterns := range overlay {
		merged[domain] = patterns
	}
	return merged
}

// candidatesFromRules expands the domain's patterns against the page URL.
// Order is preserved: the first pattern producing a fetchable candidate wins
// downstream.
func candidatesFromRules(patterns []config.RulePattern, pageURL string) []string {
	origin, err := urlutil.Origin(pageURL)
	if err != nil {
		return nil
	}

	var out []string
	for _, p := range patterns {
		switch p.Kind {
		case config.PatternFixed:
			out = append(out, origin+p.Path)
		case config.PatternPathToRSS:
			if urlutil.IsRootPath(pageURL) {
				if p.Root != "" {
					out = append(out, origin+p.Root)
				}
				continue
			}
			if seg := urlutil.FirstPathSegment(pageURL); seg != "" {
				out = append(out, origin+strings.ReplaceAll(p.Template, "{s}", seg))
			}
		}
	}
	return out
}
