package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pattern kinds accepted in the domain-rule table.
const (
	PatternFixed     = "fixed"       // append a literal path to the origin
	PatternPathToRSS = "path_to_rss" // substitute the first path segment into a template
)

// RulePattern is one candidate-producing rule inside a domain entry.
// For kind "fixed", Path holds the literal path. For kind "path_to_rss",
// Template holds a path containing the placeholder "{s}" and Root holds the
// fallback path used when the request addresses the site root.
type RulePattern struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path,omitempty"`
	Template string `yaml:"template,omitempty"`
	Root     string `yaml:"root,omitempty"`
}

// SiteProfile overrides the extractor's generic selectors for one
// registrable domain. Empty fields inherit from the default profile.
type SiteProfile struct {
	ArticleSelectors     []string `yaml:"article_selectors,omitempty"`
	TitleSelectors       []string `yaml:"title_selectors,omitempty"`
	LinkSelectors        []string `yaml:"link_selectors,omitempty"`
	DescriptionSelectors []string `yaml:"description_selectors,omitempty"`
	ImageSelectors       []string `yaml:"image_selectors,omitempty"`
	DateSelectors        []string `yaml:"date_selectors,omitempty"`
	RemoveSelectors      []string `yaml:"remove_selectors,omitempty"`
}

// Rules is the YAML overlay document: discovery patterns and scrape profiles
// keyed by registrable domain. Entries merge over the built-in tables.
type Rules struct {
	DomainRules  map[string][]RulePattern `yaml:"domain_rules"`
	SiteProfiles map[string]SiteProfile   `yaml:"site_profiles"`
}

// LoadRules reads and validates a rules overlay file.
// The path parameter is expected to come from a trusted source (environment
// variable set by the operator), not request input.
func LoadRules(path string) (*Rules, error) {
	// #nosec G304 -- path is provided by trusted source (RULES_FILE env), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := validateRules(&rules); err != nil {
		return nil, fmt.Errorf("rules validation failed: %w", err)
	}

	return &rules, nil
}

// validateRules rejects entries the discovery engine could not act on.
func validateRules(rules *Rules) error {
	for domain, patterns := range rules.DomainRules {
		if domain == "" {
			return fmt.Errorf("domain_rules contains an empty domain key")
		}
		if len(patterns) == 0 {
			return fmt.Errorf("domain %s has no patterns", domain)
		}
		for i, p := range patterns {
			switch p.Kind {
			case PatternFixed:
				if p.Path == "" {
					return fmt.Errorf("domain %s pattern %d: fixed pattern requires path", domain, i)
				}
			case PatternPathToRSS:
				if p.Template == "" {
					return fmt.Errorf("domain %s pattern %d: path_to_rss pattern requires template", domain, i)
				}
			default:
				return fmt.Errorf("domain %s pattern %d: unknown kind %q", domain, i, p.Kind)
			}
		}
	}

	for domain, profile := range rules.SiteProfiles {
		if domain == "" {
			return fmt.Errorf("site_profiles contains an empty domain key")
		}
		// プロファイルは部分的でよいが、空のエントリは設定ミス
		if len(profile.ArticleSelectors) == 0 && len(profile.TitleSelectors) == 0 &&
			len(profile.LinkSelectors) == 0 && len(profile.DescriptionSelectors) == 0 &&
			len(profile.ImageSelectors) == 0 && len(profile.DateSelectors) == 0 &&
			len(profile.RemoveSelectors) == 0 {
			return fmt.Errorf("site profile %s is empty", domain)
		}
	}

	return nil
}
