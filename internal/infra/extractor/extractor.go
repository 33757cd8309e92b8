// Package extractor builds article lists out of arbitrary news-site HTML.
// It drives goquery with per-site CSS selector profiles and tolerates broken
// markup: a candidate that cannot be extracted is logged and skipped, never
// fatal for the page.
package extractor

import (
	"bytes"
	"log/slog"
	"sort"
	"strings"
	"time"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/pkg/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

const (
	// minCandidateText filters out navigation stubs and teaser fragments.
	minCandidateText = 50

	// minDescriptionLength is the threshold below which a selector hit is
	// rejected in favor of the next selector or the body-text fallback.
	minDescriptionLength = 30

	// fallbackDescriptionLength caps the body-text fallback description.
	fallbackDescriptionLength = 200

	// minValidDescription is the post-validation floor for a finished article.
	minValidDescription = 20
)

// boilerplateSelectors are stripped from the document before candidate
// enumeration, on top of the profile's removeSelectors.
const boilerplateSelectors = "script, style, nav, footer, aside, .ad, .advertisement"

const (
	authorSelectors   = `.author, .byline, [rel="author"]`
	categorySelectors = ".category, .tag, .section"
)

// Extractor turns page HTML into articles using per-site selector profiles.
type Extractor struct {
	profiles *ProfileTable
	logger   *slog.Logger
}

// New creates an Extractor. logger may be nil.
func New(profiles *ProfileTable, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{profiles: profiles, logger: logger}
}

// Extract parses the HTML and returns up to maxArticles valid articles,
// newest first. A page that yields no valid article returns a NoArticles
// error.
func (e *Extractor) Extract(html []byte, pageURL string, maxArticles int, now time.Time) ([]entity.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, entity.NewError(entity.KindParseFailure, pageURL, err)
	}

	profile := e.profiles.For(pageURL)

	doc.Find(boilerplateSelectors).Remove()
	for _, sel := range profile.RemoveSelectors {
		doc.Find(sel).Remove()
	}

	candidates := e.collectCandidates(doc, profile, maxArticles)

	articles := make([]entity.Article, 0, len(candidates))
	seenLinks := make(map[string]struct{}, len(candidates))
	for i, cand := range candidates {
		a, ok := e.extractOne(cand, profile, pageURL, now, i)
		if !ok {
			continue
		}
		if len([]rune(a.Title)) < entity.MinTitleLength {
			continue
		}
		if a.Link == "" {
			continue
		}
		if _, dup := seenLinks[a.Link]; dup {
			continue
		}
		if len([]rune(a.Description)) < minValidDescription {
			continue
		}
		seenLinks[a.Link] = struct{}{}
		articles = append(articles, a)
	}

	if len(articles) == 0 {
		return nil, entity.NewError(entity.KindNoArticles, pageURL, nil)
	}

	// 安定ソート: 同時刻の記事はページ上の出現順を保つ
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	return articles, nil
}

// PageMeta reads the page title and meta description out of the HTML head,
// with Open Graph fallbacks. Used for synthesized channel metadata.
func (e *Extractor) PageMeta(html []byte) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", ""
	}
	title = entity.CollapseSpace(doc.Find("title").First().Text())
	if title == "" {
		title = entity.CollapseSpace(doc.Find(`meta[property="og:site_name"]`).AttrOr("content", ""))
	}
	description = entity.CollapseSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if description == "" {
		description = entity.CollapseSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	return title, description
}

// collectCandidates enumerates article nodes selector by selector, deduping
// by trimmed node text and stopping at twice the requested article count.
func (e *Extractor) collectCandidates(doc *goquery.Document, profile Profile, maxArticles int) []*goquery.Selection {
	limit := 2 * maxArticles
	var out []*goquery.Selection
	seenText := make(map[string]struct{})

	for _, sel := range profile.ArticleSelectors {
		if len(out) >= limit {
			break
		}
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) < minCandidateText {
				return true
			}
			if _, dup := seenText[text]; dup {
				return true
			}
			seenText[text] = struct{}{}
			out = append(out, s)
			return len(out) < limit
		})
	}
	return out
}

// extractOne pulls the article fields out of one candidate node. A panic
// inside selector evaluation (possible on pathological markup) is recovered
// and reported as a skip.
func (e *Extractor) extractOne(s *goquery.Selection, profile Profile, pageURL string, now time.Time, index int) (article entity.Article, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("article extraction panicked, skipping candidate",
				slog.String("url", pageURL),
				slog.Int("index", index),
				slog.Any("panic", r))
			ok = false
		}
	}()

	article = entity.Article{
		Title:       e.findTitle(s, profile),
		Link:        e.findLink(s, profile, pageURL),
		Image:       e.findImage(s, profile, pageURL),
		PublishedAt: e.findDate(s, profile, now),
		Author:      entity.CollapseSpace(s.Find(authorSelectors).First().Text()),
		Category:    entity.CollapseSpace(s.Find(categorySelectors).First().Text()),
	}
	article.Description = e.findDescription(s, profile)
	article.Normalize(now)
	return article, true
}

// findTitle returns the first selector hit whose text or title attribute
// reaches the minimum title length.
func (e *Extractor) findTitle(s *goquery.Selection, profile Profile) string {
	for _, sel := range profile.TitleSelectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := entity.CollapseSpace(node.Text()); len([]rune(text)) >= entity.MinTitleLength {
			return text
		}
		if attr := entity.CollapseSpace(node.AttrOr("title", "")); len([]rune(attr)) >= entity.MinTitleLength {
			return attr
		}
	}
	return ""
}

// findLink returns the first anchor href under the link selectors, resolved
// absolute. The candidate node itself counts when it is an anchor.
func (e *Extractor) findLink(s *goquery.Selection, profile Profile, pageURL string) string {
	if s.Is("a") {
		if href, exists := s.Attr("href"); exists {
			if abs := urlutil.ResolveRef(pageURL, href); abs != "" {
				return abs
			}
		}
	}
	for _, sel := range profile.LinkSelectors {
		href, exists := s.Find(sel).First().Attr("href")
		if !exists {
			continue
		}
		if abs := urlutil.ResolveRef(pageURL, href); abs != "" {
			return abs
		}
	}
	return ""
}

// findDescription returns the first selector hit long enough to stand alone,
// falling back to the head of the candidate's own text.
func (e *Extractor) findDescription(s *goquery.Selection, profile Profile) string {
	for _, sel := range profile.DescriptionSelectors {
		if text := entity.CollapseSpace(s.Find(sel).First().Text()); len([]rune(text)) >= minDescriptionLength {
			return text
		}
	}
	own := entity.CollapseSpace(s.Text())
	return entity.TruncateWithEllipsis(own, fallbackDescriptionLength)
}

// findDate parses the publication date from the datetime attribute, the
// data-time attribute or the node text, trying strict RFC 3339 before the
// permissive parser. Unparseable dates fall back to now.
func (e *Extractor) findDate(s *goquery.Selection, profile Profile, now time.Time) time.Time {
	for _, sel := range profile.DateSelectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, raw := range []string{node.AttrOr("datetime", ""), node.AttrOr("data-time", ""), node.Text()} {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				return t
			}
			if t, err := dateparse.ParseAny(raw); err == nil {
				return t
			}
		}
	}
	return now
}

// findImage returns the first image URL from src or the common lazy-load
// attributes, resolved absolute.
func (e *Extractor) findImage(s *goquery.Selection, profile Profile, pageURL string) string {
	for _, sel := range profile.ImageSelectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if raw := node.AttrOr(attr, ""); raw != "" {
				if abs := urlutil.ResolveRef(pageURL, raw); abs != "" {
					return abs
				}
			}
		}
	}
	return ""
}
