// Package discovery locates the native RSS/Atom feed for a web page. It
// walks a fixed chain of strategies, probing candidate URLs through the
// shared origin fetcher, and caches conclusive outcomes for an hour.
package discovery

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pagefeed/internal/config"
	"pagefeed/internal/domain/entity"
	"pagefeed/internal/infra/fetcher"
	"pagefeed/internal/pkg/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// outcomeTTL is how long Found and Negative outcomes stay cached.
	outcomeTTL = time.Hour

	outcomeCacheCapacity = 1024

	// minFeedBody rejects empty or stub candidate responses.
	minFeedBody = 50

	// maxCandidateProbes bounds the probes one Discover call may issue.
	maxCandidateProbes = 12
)

// feedMarkers identify a feed document in a candidate body (lowercased).
var feedMarkers = []string{
	"<rss", "<feed", "<channel>",
	`xmlns="http://www.w3.org/2005/atom"`, "xmlns:atom=",
}

// Prober is the slice of the origin fetcher the engine needs.
type Prober interface {
	GetBody(ctx context.Context, url string, opts fetcher.Options) (*fetcher.Body, error)
	MarkFailed(url string, status int)
	RecentlyFailed(url string) bool
}

// Engine discovers feeds. Safe for concurrent use.
type Engine struct {
	prober       Prober
	rules        map[string][]config.RulePattern
	extraEnabled bool
	outcomes     *expirable.LRU[string, entity.DiscoveryOutcome]
	logger       *slog.Logger
}

// New creates an Engine. rulesOverlay may be nil; extraEnabled turns on the
// sitemap, robots and content-mining strategies.
func New(prober Prober, rulesOverlay map[string][]config.RulePattern, extraEnabled bool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		prober:       prober,
		rules:        mergeRules(rulesOverlay),
		extraEnabled: extraEnabled,
		outcomes:     expirable.NewLRU[string, entity.DiscoveryOutcome](outcomeCacheCapacity, nil, outcomeTTL),
		logger:       logger,
	}
}

// run carries the per-call state shared between strategies.
type run struct {
	pageURL   string
	pageHTML  []byte // set once HtmlHead has fetched the page
	probed    map[string]struct{}
	probes    int
	transient bool
}

// Discover resolves the feed URL for pageURL. It never returns a Go error:
// strategy failures are logged and the chain continues, ending in a Negative
// or Transient outcome. Found and Negative outcomes are cached for an hour.
func (e *Engine) Discover(ctx context.Context, pageURL string) entity.DiscoveryOutcome {
	if cached, ok := e.outcomes.Get(pageURL); ok {
		return cached
	}

	// 失敗直後のページは探索せず即座に打ち切る(キャッシュはしない)
	if e.prober.RecentlyFailed(pageURL) {
		return entity.DiscoveryOutcome{State: entity.OutcomeNegative, Reason: entity.ReasonRecentlyFailed}
	}

	r := &run{pageURL: pageURL, probed: make(map[string]struct{})}

	type step struct {
		strategy   entity.Strategy
		candidates func(context.Context, *run) []string
	}
	steps := []step{
		{entity.StrategyHTMLHead, e.htmlHeadCandidates},
		{entity.StrategyDomainRule, e.domainRuleCandidates},
		{entity.StrategyURLPattern, e.urlPatternCandidates},
		{entity.StrategyCommonPath, e.commonPathCandidates},
		{entity.StrategyWordPress, e.wordPressCandidates},
	}
	if e.extraEnabled {
		steps = append(steps,
			step{entity.StrategySitemap, e.sitemapCandidates},
			step{entity.StrategyRobots, e.robotsCandidates},
			step{entity.StrategyContentMining, e.contentMiningCandidates},
		)
	}

	for _, st := range steps {
		for _, candidate := range st.candidates(ctx, r) {
			if e.probeCandidate(ctx, r, candidate) {
				outcome := entity.DiscoveryOutcome{
					State:    entity.OutcomeFound,
					FeedURL:  candidate,
					Strategy: st.strategy,
				}
				e.outcomes.Add(pageURL, outcome)
				e.logger.Info("feed discovered",
					slog.String("page", pageURL),
					slog.String("feed", candidate),
					slog.String("strategy", st.strategy.String()))
				return outcome
			}
		}
	}

	if r.transient {
		return entity.DiscoveryOutcome{State: entity.OutcomeTransient, Reason: entity.ReasonNoFeedFound}
	}
	outcome := entity.DiscoveryOutcome{State: entity.OutcomeNegative, Reason: entity.ReasonNoFeedFound}
	e.outcomes.Add(pageURL, outcome)
	return outcome
}

// CachedOutcomes reports the size of the discovery cache, for health
// reporting.
func (e *Engine) CachedOutcomes() int { return e.outcomes.Len() }

// probeCandidate fetches a candidate and checks that the body looks like a
// feed. Invalid candidates land in the shared failed-URL set so repeated
// discovery runs skip them for a while.
func (e *Engine) probeCandidate(ctx context.Context, r *run, candidate string) bool {
	if candidate == "" {
		return false
	}
	if _, done := r.probed[candidate]; done {
		return false
	}
	r.probed[candidate] = struct{}{}

	if r.probes >= maxCandidateProbes {
		return false
	}
	r.probes++

	if e.prober.RecentlyFailed(candidate) {
		return false
	}

	body, err := e.prober.GetBody(ctx, candidate, fetcher.Options{Discovery: true})
	if err != nil {
		e.logger.Debug("candidate probe failed",
			slog.String("candidate", candidate),
			slog.String("error", err.Error()))
		return false
	}
	if !validFeedBody(body.Data) {
		e.prober.MarkFailed(candidate, 0)
		return false
	}
	return true
}

// validFeedBody reports whether data plausibly is an RSS or Atom document.
func validFeedBody(data []byte) bool {
	if len(data) < minFeedBody {
		return false
	}
	lower := strings.ToLower(string(data[:min(len(data), 2048)]))
	for _, marker := range feedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// htmlHeadCandidates fetches the page itself and reads feed declarations out
// of its <head>. The fetched HTML is kept on the run for content mining.
func (e *Engine) htmlHeadCandidates(ctx context.Context, r *run) []string {
	body, err := e.prober.GetBody(ctx, r.pageURL, fetcher.Options{Discovery: true})
	if err != nil {
		switch entity.KindOf(err) {
		case entity.KindOriginTimeout, entity.KindOriginUnreachable,
			entity.KindOriginBlocked, entity.KindOriginServer5xx:
			r.transient = true
		}
		e.logger.Warn("html head strategy: page fetch failed",
			slog.String("page", r.pageURL),
			slog.String("error", err.Error()))
		return nil
	}
	r.pageHTML = body.Data

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body.Data))
	if err != nil {
		e.logger.Warn("html head strategy: parse failed",
			slog.String("page", r.pageURL),
			slog.String("error", err.Error()))
		return nil
	}

	var out []string
	add := func(s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			if abs := urlutil.ResolveRef(r.pageURL, href); abs != "" {
				out = append(out, abs)
			}
		}
	}

	doc.Find(`link[type="application/rss+xml"]`).Each(func(_ int, s *goquery.Selection) { add(s) })
	doc.Find(`link[type="application/atom+xml"]`).Each(func(_ int, s *goquery.Selection) { add(s) })
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		t := strings.ToLower(s.AttrOr("type", ""))
		if strings.Contains(t, "rss+xml") || strings.Contains(t, "atom+xml") {
			add(s)
		}
	})
	doc.Find(`link[rel="feed"]`).Each(func(_ int, s *goquery.Selection) { add(s) })
	return out
}

func (e *Engine) domainRuleCandidates(_ context.Context, r *run) []string {
	patterns, ok := e.rules[urlutil.RegistrableDomain(r.pageURL)]
	if !ok {
		return nil
	}
	return candidatesFromRules(patterns, r.pageURL)
}

// urlPatternCandidates generalizes the section-feed convention: a
// single-segment path /x probes /rss/x.rss and /x/feed, the root probes the
// homepage feed locations.
func (e *Engine) urlPatternCandidates(_ context.Context, r *run) []string {
	origin, err := urlutil.Origin(r.pageURL)
	if err != nil {
		return nil
	}
	if urlutil.IsRootPath(r.pageURL) {
		return []string{origin + "/rss/trang-chu.rss", origin + "/rss"}
	}
	u, err := url.Parse(r.pageURL)
	if err != nil {
		return nil
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) != 1 || segs[0] == "" {
		return nil
	}
	return []string{
		origin + "/rss/" + segs[0] + ".rss",
		origin + "/" + segs[0] + "/feed",
	}
}

func (e *Engine) commonPathCandidates(_ context.Context, r *run) []string {
	origin, err := urlutil.Origin(r.pageURL)
	if err != nil {
		return nil
	}
	return []string{origin + "/rss", origin + "/feed"}
}

func (e *Engine) wordPressCandidates(_ context.Context, r *run) []string {
	origin, err := urlutil.Origin(r.pageURL)
	if err != nil {
		return nil
	}
	page := strings.TrimSuffix(r.pageURL, "/")
	return []string{page + "/feed", origin + "/feed"}
}
