package feed

import (
	"net/http"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/handler/http/respond"
	"pagefeed/internal/pkg/urlutil"
)

// CacheStatsHandler serves GET /cache/stats: cache counters plus the
// orchestrator's discovery and assembly statistics.
type CacheStatsHandler struct{ Svc Service }

func (h CacheStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Svc.Stats())
}

// CacheClearHandler serves DELETE /cache: flush everything, or only the
// entries of one page when ?url= is given.
type CacheClearHandler struct{ Svc Service }

func (h CacheClearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.Svc.Cache().Clear()
		respond.JSON(w, http.StatusOK, map[string]any{"cleared": "all"})
		return
	}

	normURL, err := urlutil.Normalize(rawURL)
	if err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, err))
		return
	}
	removed := h.Svc.Cache().ClearByPage(normURL)
	respond.JSON(w, http.StatusOK, map[string]any{"cleared": normURL, "removed": removed})
}
