package entity

import "time"

// Feed content types served to clients. The Atom alias intentionally serves
// RSS 2.0 bytes under the Atom media type for reader compatibility.
const (
	MIMERSS  = "application/rss+xml"
	MIMEAtom = "application/atom+xml"
)

// FeedEnvelope carries everything the assembler needs to render a feed:
// channel-level metadata plus the ordered article list. BuildTime is part of
// the envelope so that rendering the same envelope twice yields identical
// bytes.
type FeedEnvelope struct {
	Title       string
	Description string
	SiteLink    string
	SelfLink    string
	Language    string
	Categories  []string
	TTLMinutes  int
	Generator   string
	BuildTime   time.Time
	Items       []Article
}

// FeedResult is the orchestrator's terminal value for a request: the
// assembled bytes, the content-type tag they were produced under, and the
// instant they were built. Handlers adapt this to HTTP; the core never sees
// a ResponseWriter.
type FeedResult struct {
	Body        []byte
	ContentType string
	BuiltAt     time.Time
}
