package feed

import (
	"net/http"
)

// Register wires the feed routes onto the mux. cacheSeconds drives the
// Cache-Control max-age on feed responses.
func Register(mux *http.ServeMux, svc Service, cacheSeconds int) {
	mux.Handle("GET    /feed", FeedHandler{Svc: svc, CacheSeconds: cacheSeconds})
	mux.Handle("GET    /feed/atom", FeedHandler{Svc: svc, CacheSeconds: cacheSeconds, Atom: true})
	mux.Handle("GET    /preview", PreviewHandler{Svc: svc})
	mux.Handle("GET    /metadata", MetadataHandler{Svc: svc})
	mux.Handle("POST   /validate", ValidateHandler{Svc: svc})
	mux.Handle("GET    /cache/stats", CacheStatsHandler{Svc: svc})
	mux.Handle("DELETE /cache", CacheClearHandler{Svc: svc})
}
