package extractor

import (
	"strings"
	"testing"
	"time"

	"pagefeed/internal/config"
	"pagefeed/internal/domain/entity"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Example News</title>
<script>var tracking = true;</script>
<style>.hidden{display:none}</style>
</head><body>
<nav>Home | World | Business | Sports | Technology | Entertainment</nav>
<article>
  <h2>First headline about an important event</h2>
  <a href="/news/first-story">Read more</a>
  <p>A sufficiently long description of the first story so that it clears the description threshold.</p>
  <time datetime="2025-06-10T08:00:00Z">June 10</time>
  <img src="/images/first.jpg">
  <span class="author">Jane Reporter</span>
  <span class="category">World</span>
</article>
<article>
  <h2>Second headline about another notable event</h2>
  <a href="https://other.example.net/second-story">Read more</a>
  <p>The second story also carries a long enough description paragraph for extraction.</p>
  <time datetime="2025-06-10T10:00:00Z">June 10</time>
</article>
<article>
  <h2>tiny</h2>
  <a href="/news/rejected">x</a>
  <p>This candidate has a long body but its headline is too short to survive validation.</p>
</article>
<aside>Trending now: a long sidebar of links that must never appear in the output feed at all.</aside>
<footer>Copyright 2025 Example News. All rights reserved worldwide.</footer>
</body></html>`

func newTestExtractor(overlay map[string]config.SiteProfile) *Extractor {
	return New(NewProfileTable(overlay), nil)
}

func TestExtract(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	articles, err := newTestExtractor(nil).Extract([]byte(samplePage), "https://news.example.com/world", 20, now)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	// publishedAt降順
	if !articles[0].PublishedAt.After(articles[1].PublishedAt) {
		t.Errorf("articles not sorted newest first: %v then %v", articles[0].PublishedAt, articles[1].PublishedAt)
	}

	second := articles[1]
	if second.Title != "First headline about an important event" {
		t.Errorf("title = %q", second.Title)
	}
	if second.Link != "https://news.example.com/news/first-story" {
		t.Errorf("relative link not resolved: %q", second.Link)
	}
	if second.Image != "https://news.example.com/images/first.jpg" {
		t.Errorf("image = %q", second.Image)
	}
	if second.Author != "Jane Reporter" {
		t.Errorf("author = %q", second.Author)
	}
	if second.Category != "World" {
		t.Errorf("category = %q", second.Category)
	}
	if want := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC); !second.PublishedAt.Equal(want) {
		t.Errorf("publishedAt = %v, want %v", second.PublishedAt, want)
	}

	for _, a := range articles {
		if strings.Contains(a.Description, "Trending now") || strings.Contains(a.Description, "Copyright") {
			t.Errorf("boilerplate leaked into description: %q", a.Description)
		}
	}
}

func TestExtract_MaxArticles(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 10; i++ {
		b.WriteString(`<article><h2>Numbered headline for generated story `)
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(`</h2><a href="/s/`)
		b.WriteString(strings.Repeat("a", i+1))
		b.WriteString(`">link</a><p>A long generated description paragraph that easily satisfies the extractor minimum.</p></article>`)
	}
	b.WriteString("</body></html>")

	articles, err := newTestExtractor(nil).Extract([]byte(b.String()), "https://e.com/", 3, time.Now())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 3 {
		t.Errorf("got %d articles, want 3", len(articles))
	}
}

func TestExtract_NoArticles(t *testing.T) {
	_, err := newTestExtractor(nil).Extract([]byte("<html><body><p>nothing here</p></body></html>"), "https://e.com/", 20, time.Now())
	if !entity.IsKind(err, entity.KindNoArticles) {
		t.Fatalf("kind = %v, want NoArticles", entity.KindOf(err))
	}
}

func TestExtract_DuplicateLinksDropped(t *testing.T) {
	page := `<html><body>
<article><h2>The same destination listed twice on page</h2><a href="/dup">x</a>
<p>First occurrence of the duplicated story link with plenty of description text.</p></article>
<article><h2>A different headline, identical target</h2><a href="/dup">y</a>
<p>Second occurrence of the duplicated story link with plenty of description text.</p></article>
</body></html>`

	articles, err := newTestExtractor(nil).Extract([]byte(page), "https://e.com/", 20, time.Now())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
}

func TestExtract_SiteProfileOverlay(t *testing.T) {
	page := `<html><body>
<div class="story-card"><span class="story-title">Custom markup headline for the overlay test</span>
<a href="/custom">more</a>
<p>The overlay profile must pick this up even though no generic selector matches the wrapper.</p></div>
</body></html>`

	overlay := map[string]config.SiteProfile{
		"custom.example": {
			ArticleSelectors: []string{".story-card"},
			TitleSelectors:   []string{".story-title"},
		},
	}

	articles, err := newTestExtractor(overlay).Extract([]byte(page), "https://custom.example/home", 20, time.Now())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Title != "Custom markup headline for the overlay test" {
		t.Errorf("title = %q", articles[0].Title)
	}
}

func TestProfileTable_InheritsDefaults(t *testing.T) {
	table := NewProfileTable(map[string]config.SiteProfile{
		"partial.example": {ArticleSelectors: []string{".custom"}},
	})

	p := table.For("https://partial.example/x")
	if len(p.ArticleSelectors) != 1 || p.ArticleSelectors[0] != ".custom" {
		t.Errorf("article selectors = %v", p.ArticleSelectors)
	}
	if len(p.TitleSelectors) == 0 {
		t.Error("title selectors should inherit from the default profile")
	}

	def := table.For("https://unknown.example/")
	if len(def.ArticleSelectors) == 0 || def.ArticleSelectors[0] != "article" {
		t.Errorf("default profile article selectors = %v", def.ArticleSelectors)
	}
}
