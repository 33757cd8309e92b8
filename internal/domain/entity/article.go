// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, FeedEnvelope and Options,
// along with their validation rules and the domain error taxonomy.
package entity

import (
	"strings"
	"time"
)

const (
	// MinTitleLength is the minimum article title length (after whitespace collapse)
	// an article must carry to be considered usable.
	MinTitleLength = 10

	// MaxDescriptionLength is the hard cap applied to article descriptions.
	// Longer descriptions are truncated with a trailing ellipsis.
	MaxDescriptionLength = 300
)

// Article represents a single syndicated item, either parsed from a native
// RSS/Atom feed or extracted from a page's HTML.
type Article struct {
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Category    string
	Image       string
	PublishedAt time.Time
	GUID        string
}

// Normalize enforces the Article invariants in place:
// the title has its whitespace collapsed, the description is capped at
// MaxDescriptionLength runes with a trailing ellipsis, the GUID defaults to
// the link, and a zero PublishedAt falls back to the supplied extraction time.
func (a *Article) Normalize(extractedAt time.Time) {
	a.Title = CollapseSpace(a.Title)
	a.Description = TruncateWithEllipsis(strings.TrimSpace(a.Description), MaxDescriptionLength)
	if a.GUID == "" {
		a.GUID = a.Link
	}
	if a.PublishedAt.IsZero() {
		a.PublishedAt = extractedAt
	}
}

// Valid reports whether the article satisfies the minimum shape required to
// appear in a feed: a collapsed title of at least MinTitleLength runes and a
// non-empty link.
func (a *Article) Valid() bool {
	return len([]rune(CollapseSpace(a.Title))) >= MinTitleLength && a.Link != ""
}

// CollapseSpace trims the string and collapses internal whitespace runs
// (spaces, tabs, newlines) into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateWithEllipsis shortens s to at most max runes, appending a single
// ellipsis rune when truncation occurred. Multi-byte text is handled by rune,
// not by byte.
func TruncateWithEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
