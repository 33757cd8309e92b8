// Package feed orchestrates the pipeline: discovery, origin fetching, feed
// parsing or HTML extraction, assembly and result caching. It returns values
// (bytes plus metadata); the HTTP layer adapts them to responses.
package feed

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"pagefeed/internal/cache"
	"pagefeed/internal/domain/entity"
	"pagefeed/internal/infra/feedparser"
	"pagefeed/internal/infra/fetcher"
	"pagefeed/internal/observability/metrics"
	"pagefeed/internal/pkg/urlutil"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the slice of the origin fetcher the orchestrator uses.
type Fetcher interface {
	GetBody(ctx context.Context, url string, opts fetcher.Options) (*fetcher.Body, error)
}

// Discoverer locates a page's native feed.
type Discoverer interface {
	Discover(ctx context.Context, pageURL string) entity.DiscoveryOutcome
}

// Parser decodes native feed documents.
type Parser interface {
	Parse(feedURL string, data []byte, extractedAt time.Time) ([]entity.Article, feedparser.Meta, error)
}

// Extractor builds articles out of page HTML.
type Extractor interface {
	Extract(html []byte, pageURL string, maxArticles int, now time.Time) ([]entity.Article, error)
	PageMeta(html []byte) (title, description string)
}

// Assembler renders feed bytes.
type Assembler interface {
	Synthesize(env entity.FeedEnvelope) ([]byte, error)
	Passthrough(original []byte, env entity.FeedEnvelope, limit int) ([]byte, error)
}

// Settings are the orchestrator's tunables, filled from config by main.
type Settings struct {
	BaseURL            string
	Generator          string
	MaxArticlesPerFeed int
	CacheDuration      time.Duration
}

// Service runs the pipeline. Safe for concurrent use.
type Service struct {
	fetcher   Fetcher
	discovery Discoverer
	parser    Parser
	extractor Extractor
	assembler Assembler
	cache     *cache.ResultCache
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time

	passthroughs  atomic.Uint64
	synthesized   atomic.Uint64
	discoveryHits [entity.StrategyContentMining + 1]atomic.Uint64
}

// New wires the orchestrator. logger may be nil.
func New(f Fetcher, d Discoverer, p Parser, e Extractor, a Assembler, c *cache.ResultCache, settings Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MaxArticlesPerFeed <= 0 {
		settings.MaxArticlesPerFeed = 20
	}
	return &Service{
		fetcher:   f,
		discovery: d,
		parser:    p,
		extractor: e,
		assembler: a,
		cache:     c,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// Feed produces the feed bytes for a page URL, serving from cache when
// possible. Concurrent requests for the same page and options share one
// pipeline run.
func (s *Service) Feed(ctx context.Context, rawURL string, opts entity.Options) (entity.FeedResult, error) {
	normURL, err := s.checkInput(rawURL, opts)
	if err != nil {
		return entity.FeedResult{}, err
	}

	key := cache.Key(normURL, opts)
	var built atomic.Bool
	result, err := s.cache.Produce(ctx, key, func(ctx context.Context) (entity.FeedResult, error) {
		built.Store(true)
		return s.build(ctx, normURL, opts)
	})
	// Coalesced waiters never ran the producer themselves and count as hits.
	metrics.RecordCacheLookup(!built.Load())
	metrics.UpdateCacheEntries(s.cache.Stats().Entries)
	return result, err
}

// build runs one uncached pipeline pass.
func (s *Service) build(ctx context.Context, normURL string, opts entity.Options) (entity.FeedResult, error) {
	now := s.now()
	limit := opts.EffectiveLimit(s.settings.MaxArticlesPerFeed)

	discoverStart := time.Now()
	outcome := s.discovery.Discover(ctx, normURL)
	metrics.RecordDiscovery(outcome.Strategy.String(), discoveryResult(outcome), time.Since(discoverStart))
	if outcome.Found() {
		s.discoveryHits[outcome.Strategy].Add(1)
		if result, ok := s.passthrough(ctx, normURL, outcome.FeedURL, opts, limit, now); ok {
			return result, nil
		}
	}

	page, err := s.fetcher.GetBody(ctx, normURL, fetcher.Options{})
	if err != nil {
		return entity.FeedResult{}, err
	}
	articles, err := s.extractor.Extract(page.Data, normURL, limit, now)
	if err != nil {
		return entity.FeedResult{}, err
	}

	title, description := s.extractor.PageMeta(page.Data)
	env := s.envelope(normURL, opts, title, description, "", nil, now)
	env.Items = articles

	body, err := s.assembler.Synthesize(env)
	if err != nil {
		return entity.FeedResult{}, entity.NewError(entity.KindInternal, normURL, err)
	}
	s.synthesized.Add(1)
	metrics.RecordFeedServed("synthesized")
	metrics.RecordArticleYield(len(articles))
	return entity.FeedResult{Body: body, ContentType: entity.MIMERSS, BuiltAt: now}, nil
}

// discoveryResult maps an outcome to its metric label. For negative and
// transient runs the strategy label is whatever the engine last tried.
func discoveryResult(o entity.DiscoveryOutcome) string {
	switch o.State {
	case entity.OutcomeFound:
		return "found"
	case entity.OutcomeTransient:
		return "transient"
	default:
		return "negative"
	}
}

// passthrough attempts the native-feed path. Any failure (fetch, parse,
// mutation) reports false and the caller falls through to synthesis.
func (s *Service) passthrough(ctx context.Context, normURL, feedURL string, opts entity.Options, limit int, now time.Time) (entity.FeedResult, bool) {
	body, err := s.fetcher.GetBody(ctx, feedURL, fetcher.Options{})
	if err != nil {
		s.logger.Warn("native feed fetch failed, falling back to extraction",
			slog.String("page", normURL),
			slog.String("feed", feedURL),
			slog.String("error", err.Error()))
		return entity.FeedResult{}, false
	}
	items, _, err := s.parser.Parse(feedURL, body.Data, now)
	if err != nil {
		s.logger.Warn("native feed did not parse, falling back to extraction",
			slog.String("feed", feedURL),
			slog.String("error", err.Error()))
		return entity.FeedResult{}, false
	}

	env := s.envelope(normURL, opts, "", "", feedURL, nil, now)
	out, err := s.assembler.Passthrough(body.Data, env, limit)
	if err != nil {
		s.logger.Warn("pass-through mutation failed, falling back to extraction",
			slog.String("feed", feedURL),
			slog.String("error", err.Error()))
		return entity.FeedResult{}, false
	}
	s.passthroughs.Add(1)
	metrics.RecordFeedServed("passthrough")
	metrics.RecordArticleYield(len(items))
	return entity.FeedResult{Body: out, ContentType: entity.MIMERSS, BuiltAt: now}, true
}

// envelope builds the channel metadata for one response. Caller overrides
// win over page-derived values.
func (s *Service) envelope(normURL string, opts entity.Options, pageTitle, pageDescription, feedURL string, items []entity.Article, now time.Time) entity.FeedEnvelope {
	title := opts.Title
	if title == "" {
		title = pageTitle
	}
	if title == "" && feedURL == "" {
		title = "Feed for " + urlutil.RegistrableDomain(normURL)
	}
	description := opts.Description
	if description == "" {
		description = pageDescription
	}
	if description == "" && feedURL == "" {
		description = "Articles extracted from " + normURL
	}

	return entity.FeedEnvelope{
		Title:       title,
		Description: description,
		SiteLink:    normURL,
		SelfLink:    s.settings.BaseURL + "/feed?url=" + url.QueryEscape(normURL),
		TTLMinutes:  int(s.settings.CacheDuration.Minutes()),
		Generator:   s.settings.Generator,
		BuildTime:   now,
		Items:       items,
	}
}

// Articles returns one page of extracted or parsed articles without feed
// assembly. page is 1-based; the returned total counts all articles before
// pagination.
func (s *Service) Articles(ctx context.Context, rawURL string, limit, page int) ([]entity.Article, int, error) {
	normURL, err := s.checkInput(rawURL, entity.Options{})
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > s.settings.MaxArticlesPerFeed {
		limit = s.settings.MaxArticlesPerFeed
	}
	if page < 1 {
		page = 1
	}
	// limit*page and (page-1)*limit below must not overflow; a page this far
	// past any real article list lands on the empty-page path anyway.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	articles, err := s.collectArticles(ctx, normURL, limit*page)
	if err != nil {
		return nil, 0, err
	}

	total := len(articles)
	start := (page - 1) * limit
	if start >= total {
		return []entity.Article{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return articles[start:end], total, nil
}

// collectArticles resolves articles for a page, native feed first.
func (s *Service) collectArticles(ctx context.Context, normURL string, max int) ([]entity.Article, error) {
	now := s.now()
	outcome := s.discovery.Discover(ctx, normURL)
	if outcome.Found() {
		if body, err := s.fetcher.GetBody(ctx, outcome.FeedURL, fetcher.Options{}); err == nil {
			if articles, _, err := s.parser.Parse(outcome.FeedURL, body.Data, now); err == nil {
				if len(articles) > max {
					articles = articles[:max]
				}
				return articles, nil
			}
		}
	}

	page, err := s.fetcher.GetBody(ctx, normURL, fetcher.Options{})
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(page.Data, normURL, max, now)
}

// Metadata describes what the service knows about a page before assembling
// anything.
type Metadata struct {
	URL          string           `json:"url"`
	Domain       string           `json:"domain"`
	FeedURL      string           `json:"feedUrl,omitempty"`
	Strategy     string           `json:"strategy,omitempty"`
	ArticleCount int              `json:"articleCount"`
	Samples      []entity.Article `json:"samples"`
}

const metadataSamples = 3

// Metadata probes a page: discovery outcome plus a small article sample.
func (s *Service) Metadata(ctx context.Context, rawURL string) (Metadata, error) {
	normURL, err := s.checkInput(rawURL, entity.Options{})
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		URL:     normURL,
		Domain:  urlutil.RegistrableDomain(normURL),
		Samples: []entity.Article{},
	}

	outcome := s.discovery.Discover(ctx, normURL)
	if outcome.Found() {
		meta.FeedURL = outcome.FeedURL
		meta.Strategy = outcome.Strategy.String()
	}

	articles, err := s.collectArticles(ctx, normURL, s.settings.MaxArticlesPerFeed)
	if err != nil {
		return Metadata{}, err
	}
	meta.ArticleCount = len(articles)
	if len(articles) > metadataSamples {
		articles = articles[:metadataSamples]
	}
	meta.Samples = articles
	return meta, nil
}

// ValidationReport is the /validate response shape.
type ValidationReport struct {
	Accessible bool   `json:"accessible"`
	CanScrape  bool   `json:"canScrape"`
	HasRSSFeed bool   `json:"hasRSSFeed"`
	RSSURL     string `json:"rssUrl,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Validate probes a page's accessibility and feed availability. The two
// probes run concurrently; probe failures populate the report instead of
// failing the call.
func (s *Service) Validate(ctx context.Context, rawURL string) (ValidationReport, error) {
	normURL, err := s.checkInput(rawURL, entity.Options{})
	if err != nil {
		return ValidationReport{}, err
	}

	var (
		report   ValidationReport
		pageHTML []byte
		fetchErr error
		outcome  entity.DiscoveryOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := s.fetcher.GetBody(gctx, normURL, fetcher.Options{})
		if err != nil {
			fetchErr = err
			return nil
		}
		pageHTML = body.Data
		return nil
	})
	g.Go(func() error {
		outcome = s.discovery.Discover(gctx, normURL)
		return nil
	})
	_ = g.Wait()

	report.Accessible = fetchErr == nil
	if fetchErr != nil {
		report.Reason = string(entity.KindOf(fetchErr))
	}
	if outcome.Found() {
		report.HasRSSFeed = true
		report.RSSURL = outcome.FeedURL
	}
	if report.Accessible {
		report.CanScrape = s.canScrape(pageHTML, normURL)
	}
	return report, nil
}

// canScrape checks whether extraction would yield articles, falling back to
// a readability probe for pages the selector profiles cannot handle.
func (s *Service) canScrape(html []byte, normURL string) bool {
	if _, err := s.extractor.Extract(html, normURL, s.settings.MaxArticlesPerFeed, s.now()); err == nil {
		return true
	}
	u, err := url.Parse(normURL)
	if err != nil {
		return false
	}
	article, err := readability.FromReader(strings.NewReader(string(html)), u)
	if err != nil {
		return false
	}
	return strings.TrimSpace(article.TextContent) != ""
}

// Stats is the orchestrator's in-memory counter snapshot, merged with the
// cache counters for /cache/stats.
type Stats struct {
	Cache       cache.Stats       `json:"cache"`
	Passthrough uint64            `json:"passthrough"`
	Synthesized uint64            `json:"synthesized"`
	Discoveries map[string]uint64 `json:"discoveries"`
}

// Stats snapshots the counters.
func (s *Service) Stats() Stats {
	discoveries := make(map[string]uint64)
	for i := range s.discoveryHits {
		if n := s.discoveryHits[i].Load(); n > 0 {
			discoveries[entity.Strategy(i).String()] = n
		}
	}
	return Stats{
		Cache:       s.cache.Stats(),
		Passthrough: s.passthroughs.Load(),
		Synthesized: s.synthesized.Load(),
		Discoveries: discoveries,
	}
}

// Cache exposes the result cache for the cache-management handler and the
// sweep schedule.
func (s *Service) Cache() *cache.ResultCache { return s.cache }

// checkInput validates and normalizes the page URL and option bounds.
// All failures surface as InvalidInput.
func (s *Service) checkInput(rawURL string, opts entity.Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", entity.NewError(entity.KindInvalidInput, rawURL, err)
	}
	if err := entity.ValidateURL(rawURL); err != nil {
		return "", entity.NewError(entity.KindInvalidInput, rawURL, err)
	}
	normURL, err := urlutil.Normalize(rawURL)
	if err != nil {
		return "", entity.NewError(entity.KindInvalidInput, rawURL, err)
	}
	return normURL, nil
}
