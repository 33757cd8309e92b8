package discovery

import (
	"context"
	"log/slog"
	"strings"

	"pagefeed/internal/infra/fetcher"
	"pagefeed/internal/pkg/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// Extra strategies. They amplify per-request fetch counts, so they sit
// behind the DISCOVERY_EXTRA_STRATEGIES flag and default to off.

const maxExtraCandidates = 5

// sitemapCandidates fetches {origin}/sitemap.xml and keeps the <loc> entries
// that look like feeds.
func (e *Engine) sitemapCandidates(ctx context.Context, r *run) []string {
	origin, err := urlutil.Origin(r.pageURL)
	if err != nil {
		return nil
	}

	body, err := e.prober.GetBody(ctx, origin+"/sitemap.xml", fetcher.Options{Discovery: true})
	if err != nil {
		e.logger.Debug("sitemap strategy: fetch failed",
			slog.String("page", r.pageURL),
			slog.String("error", err.Error()))
		return nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body.Data); err != nil {
		e.logger.Warn("sitemap strategy: parse failed",
			slog.String("page", r.pageURL),
			slog.String("error", err.Error()))
		return nil
	}

	var out []string
	for _, loc := range doc.FindElements("//loc") {
		u := strings.TrimSpace(loc.Text())
		if looksLikeFeedURL(u) {
			out = append(out, u)
			if len(out) >= maxExtraCandidates {
				break
			}
		}
	}
	return out
}

// robotsCandidates reads {origin}/robots.txt and keeps Sitemap directives
// pointing at feed-looking URLs.
func (e *Engine) robotsCandidates(ctx context.Context, r *run) []string {
	origin, err := urlutil.Origin(r.pageURL)
	if err != nil {
		return nil
	}

	body, err := e.prober.GetBody(ctx, origin+"/robots.txt", fetcher.Options{Discovery: true})
	if err != nil {
		e.logger.Debug("robots strategy: fetch failed",
			slog.String("page", r.pageURL),
			slog.String("error", err.Error()))
		return nil
	}

	var out []string
	for _, line := range strings.Split(string(body.Data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}
		u := strings.TrimSpace(line[len("sitemap:"):])
		if looksLikeFeedURL(u) {
			out = append(out, u)
			if len(out) >= maxExtraCandidates {
				break
			}
		}
	}
	return out
}

// contentMiningCandidates scans the page body (already fetched by the
// HtmlHead strategy when it succeeded) for anchors that point at feeds.
func (e *Engine) contentMiningCandidates(_ context.Context, r *run) []string {
	if len(r.pageHTML) == 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(r.pageHTML)))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if !looksLikeFeedURL(href) {
			return true
		}
		if abs := urlutil.ResolveRef(r.pageURL, href); abs != "" {
			out = append(out, abs)
		}
		return len(out) < maxExtraCandidates
	})
	return out
}

// looksLikeFeedURL is a cheap lexical filter applied before probing.
func looksLikeFeedURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "rss") ||
		strings.Contains(lower, "/feed") ||
		strings.HasSuffix(lower, ".xml") && strings.Contains(lower, "feed")
}
