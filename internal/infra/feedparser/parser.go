// Package feedparser turns native RSS/Atom documents into domain articles.
// It uses the gofeed library, which transparently handles RSS 2.0, RSS 1.0,
// Atom and JSON Feed input.
package feedparser

import (
	"bytes"
	"strings"
	"time"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/pkg/urlutil"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Meta carries the channel-level metadata of a parsed feed, used when the
// assembler re-renders the feed instead of passing the original bytes through.
type Meta struct {
	Title       string
	Description string
	SiteLink    string
	Language    string
	Categories  []string
}

// Parser parses feed documents fetched elsewhere. It never performs network
// I/O itself.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse decodes the feed document and maps every item to an entity.Article.
// Relative item links are resolved against feedURL. Malformed documents
// return a ParseFailure error; callers decide whether to fall back to HTML
// extraction.
func (p *Parser) Parse(feedURL string, data []byte, extractedAt time.Time) ([]entity.Article, Meta, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, Meta{}, entity.NewError(entity.KindParseFailure, feedURL, err)
	}

	meta := Meta{
		Title:       entity.CollapseSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
		SiteLink:    feed.Link,
		Language:    feed.Language,
		Categories:  feed.Categories,
	}

	articles := make([]entity.Article, 0, len(feed.Items))
	seen := make(map[string]struct{}, len(feed.Items))
	for _, it := range feed.Items {
		a := itemToArticle(feedURL, it)
		a.Normalize(extractedAt)
		if !a.Valid() {
			continue
		}
		// 同一リンクの重複はパーサ段階で落とす
		if _, dup := seen[a.Link]; dup {
			continue
		}
		seen[a.Link] = struct{}{}
		articles = append(articles, a)
	}

	return articles, meta, nil
}

// itemToArticle maps a single gofeed item onto the Article shape. Both RSS
// and Atom fields land in the same gofeed struct, so one mapping covers both.
func itemToArticle(feedURL string, it *gofeed.Item) entity.Article {
	a := entity.Article{
		Title:       it.Title,
		Link:        urlutil.ResolveRef(feedURL, it.Link),
		Description: it.Description,
		Content:     it.Content,
		GUID:        it.GUID,
	}

	// Atomのentryはsummaryが空でcontentだけ持つことがある
	if a.Description == "" {
		a.Description = it.Content
	}

	if it.PublishedParsed != nil {
		a.PublishedAt = *it.PublishedParsed
	} else if it.UpdatedParsed != nil {
		a.PublishedAt = *it.UpdatedParsed
	}

	if len(it.Authors) > 0 && it.Authors[0] != nil {
		a.Author = it.Authors[0].Name
	}
	if len(it.Categories) > 0 {
		a.Category = it.Categories[0]
	}

	a.Image = itemImage(feedURL, it)
	return a
}

// itemImage picks the best available image for an item: the item image,
// then an image enclosure, then media RSS extensions.
func itemImage(feedURL string, it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return urlutil.ResolveRef(feedURL, it.Image.URL)
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return urlutil.ResolveRef(feedURL, enc.URL)
		}
	}
	if media, ok := it.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			if u := mediaURL(media[name]); u != "" {
				return urlutil.ResolveRef(feedURL, u)
			}
		}
	}
	return ""
}

func mediaURL(elems []ext.Extension) string {
	for _, e := range elems {
		if u := e.Attrs["url"]; u != "" {
			return u
		}
	}
	return ""
}
