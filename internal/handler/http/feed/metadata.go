package feed

import (
	"net/http"

	"pagefeed/internal/handler/http/respond"
)

// MetadataHandler serves GET /metadata: discovery outcome plus a small
// article sample for a page.
type MetadataHandler struct{ Svc Service }

func (h MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Svc.Metadata(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, MetadataResponse{
		URL:          meta.URL,
		Domain:       meta.Domain,
		FeedURL:      meta.FeedURL,
		Strategy:     meta.Strategy,
		ArticleCount: meta.ArticleCount,
		Samples:      toArticleDTOs(meta.Samples),
	})
}
