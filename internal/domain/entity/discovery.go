package entity

// Strategy identifies one feed-discovery algorithm. The set is closed: the
// engine walks the enabled strategies in declaration order and the first
// success wins.
type Strategy int

const (
	StrategyHTMLHead Strategy = iota
	StrategyDomainRule
	StrategyURLPattern
	StrategyCommonPath
	StrategyWordPress
	// Extra strategies, disabled unless the capability flag is set.
	StrategySitemap
	StrategyRobots
	StrategyContentMining
)

var strategyNames = map[Strategy]string{
	StrategyHTMLHead:      "html_head",
	StrategyDomainRule:    "domain_rule",
	StrategyURLPattern:    "url_pattern",
	StrategyCommonPath:    "common_path",
	StrategyWordPress:     "wordpress",
	StrategySitemap:       "sitemap",
	StrategyRobots:        "robots",
	StrategyContentMining: "content_mining",
}

// String returns the stable metric/log label for the strategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// OutcomeState is the tag of a DiscoveryOutcome.
type OutcomeState int

const (
	// OutcomeFound means a validated feed URL was located.
	OutcomeFound OutcomeState = iota

	// OutcomeNegative means discovery conclusively failed; cached.
	OutcomeNegative

	// OutcomeTransient means discovery failed for a retryable reason;
	// never cached.
	OutcomeTransient
)

// Negative reasons reported in outcomes and logs.
const (
	ReasonNoFeedFound    = "no feed found"
	ReasonRecentlyFailed = "recently failed"
)

// DiscoveryOutcome is the tagged result of a discovery run. FeedURL and
// Strategy are meaningful only when State == OutcomeFound; Reason only
// otherwise.
type DiscoveryOutcome struct {
	State    OutcomeState
	FeedURL  string
	Strategy Strategy
	Reason   string
}

// Found reports whether the outcome carries a usable feed URL.
func (o DiscoveryOutcome) Found() bool { return o.State == OutcomeFound }
