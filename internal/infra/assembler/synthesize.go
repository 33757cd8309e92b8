// Package assembler renders feed bytes for clients. It has two modes:
// synthesizing RSS 2.0 from extracted articles, and passing a native feed
// through with channel-level overrides applied.
package assembler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"pagefeed/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

// Namespace URIs declared on every synthesized document.
const (
	nsContent = "http://purl.org/rss/1.0/modules/content/"
	nsDC      = "http://purl.org/dc/elements/1.1/"
	nsAtom    = "http://www.w3.org/2005/Atom"
	nsMedia   = "http://search.yahoo.com/mrss/"
)

type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	NSContent string     `xml:"xmlns:content,attr"`
	NSDC      string     `xml:"xmlns:dc,attr"`
	NSAtom    string     `xml:"xmlns:atom,attr"`
	NSMedia   string     `xml:"xmlns:media,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	Categories    []string  `xml:"category,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	TTL           int       `xml:"ttl,omitempty"`
	Generator     string    `xml:"generator,omitempty"`
	AtomLink      *atomLink `xml:"atom:link,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string     `xml:"title"`
	Link           string     `xml:"link"`
	Description    string     `xml:"description"`
	GUID           rssGUID    `xml:"guid"`
	PubDate        string     `xml:"pubDate,omitempty"`
	Category       string     `xml:"category,omitempty"`
	Enclosure      *enclosure `xml:"enclosure,omitempty"`
	MediaContent   *mediaRef  `xml:"media:content,omitempty"`
	MediaThumbnail *mediaRef  `xml:"media:thumbnail,omitempty"`
	ContentEncoded *cdata     `xml:"content:encoded,omitempty"`
	DCCreator      string     `xml:"dc:creator,omitempty"`
	DCSource       string     `xml:"dc:source,omitempty"`
	DCIdentifier   string     `xml:"dc:identifier,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

type mediaRef struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr,omitempty"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// Assembler renders feeds. Stateless and safe for concurrent use.
type Assembler struct{}

// New returns an Assembler.
func New() *Assembler {
	return &Assembler{}
}

// Synthesize renders the envelope as an RSS 2.0 document. The output is a
// pure function of the envelope: rendering the same envelope (including its
// BuildTime) twice yields identical bytes.
func (a *Assembler) Synthesize(env entity.FeedEnvelope) ([]byte, error) {
	ch := rssChannel{
		Title:         env.Title,
		Link:          env.SiteLink,
		Description:   env.Description,
		Language:      env.Language,
		Categories:    env.Categories,
		LastBuildDate: env.BuildTime.Format(time.RFC1123Z),
		TTL:           env.TTLMinutes,
		Generator:     env.Generator,
		Items:         make([]rssItem, 0, len(env.Items)),
	}
	if env.SelfLink != "" {
		ch.AtomLink = &atomLink{Href: env.SelfLink, Rel: "self", Type: entity.MIMERSS}
	}

	for i, art := range env.Items {
		ch.Items = append(ch.Items, itemFor(art, i))
	}

	doc := rssDoc{
		Version:   "2.0",
		NSContent: nsContent,
		NSDC:      nsDC,
		NSAtom:    nsAtom,
		NSMedia:   nsMedia,
		Channel:   ch,
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func itemFor(art entity.Article, index int) rssItem {
	guid := art.GUID
	if guid == "" {
		guid = fmt.Sprintf("%s#%d", art.Link, index)
	}

	item := rssItem{
		Title:       art.Title,
		Link:        art.Link,
		Description: plainText(art.Description),
		GUID:        rssGUID{IsPermaLink: guid == art.Link && art.Link != "", Value: guid},
		Category:    art.Category,
		DCCreator:   art.Author,
		DCSource:    art.Link,
	}
	if guid != art.Link {
		item.DCIdentifier = guid
	}
	if !art.PublishedAt.IsZero() {
		item.PubDate = art.PublishedAt.Format(time.RFC1123Z)
	}
	if art.Image != "" {
		item.Enclosure = &enclosure{URL: art.Image, Type: "image/jpeg", Length: 0}
		item.MediaContent = &mediaRef{URL: art.Image, Medium: "image"}
		item.MediaThumbnail = &mediaRef{URL: art.Image}
	}
	if art.Content != "" {
		item.ContentEncoded = &cdata{Value: art.Content}
	}
	return item
}

// plainText strips HTML markup out of a description. Descriptions that carry
// no markup pass through unchanged.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return entity.CollapseSpace(doc.Text())
}
