// Package feed exposes the feed pipeline over HTTP: feed rendering, article
// preview, page metadata, validation probes and cache management.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"pagefeed/internal/cache"
	"pagefeed/internal/domain/entity"
	feedUC "pagefeed/internal/usecase/feed"
)

// Service is the slice of the orchestrator the handlers consume.
type Service interface {
	Feed(ctx context.Context, rawURL string, opts entity.Options) (entity.FeedResult, error)
	Articles(ctx context.Context, rawURL string, limit, page int) ([]entity.Article, int, error)
	Metadata(ctx context.Context, rawURL string) (feedUC.Metadata, error)
	Validate(ctx context.Context, rawURL string) (feedUC.ValidationReport, error)
	Stats() feedUC.Stats
	Cache() *cache.ResultCache
}

// FeedHandler serves GET /feed and its /feed/atom alias. The alias returns
// the identical RSS 2.0 body under the Atom media type for readers that
// insist on it.
type FeedHandler struct {
	Svc          Service
	CacheSeconds int
	Atom         bool
}

func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	opts, err := parseOptions(r)
	if err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, err))
		return
	}

	// Validate before honoring If-None-Match: a stale ETag must not turn an
	// invalid request into a 304.
	if err := opts.Validate(); err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, err))
		return
	}
	if err := entity.ValidateURL(rawURL); err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, err))
		return
	}

	etag := responseETag(rawURL, opts)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	result, err := h.Svc.Feed(r.Context(), rawURL, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contentType := entity.MIMERSS
	if h.Atom {
		contentType = entity.MIMEAtom
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.CacheSeconds))
	w.Header().Set("Last-Modified", result.BuiltAt.UTC().Format(http.TimeFormat))
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

// parseOptions reads the override query parameters. Range checks live in
// Options.Validate; this rejects non-numeric and explicit-zero limits early.
func parseOptions(r *http.Request) (entity.Options, error) {
	q := r.URL.Query()
	opts := entity.Options{
		Title:       q.Get("title"),
		Description: q.Get("description"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return entity.Options{}, &entity.ValidationError{Field: "limit", Message: "limit must be an integer"}
		}
		if limit == 0 {
			// 0 reads as "not supplied" downstream; an explicit zero is out
			// of range, not a request for the ceiling.
			return entity.Options{}, &entity.ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between %d and %d", entity.MinLimit, entity.MaxLimit)}
		}
		opts.Limit = limit
	}
	return opts, nil
}

// responseETag derives the conditional-request tag from the raw URL and the
// canonical options, clock-free so it is stable across rebuilds within TTL.
func responseETag(rawURL string, opts entity.Options) string {
	sum := sha256.Sum256([]byte(rawURL + opts.Canonical()))
	return `"` + hex.EncodeToString(sum[:])[:16] + `"`
}
