package feed

import (
	"net/http"
	"strconv"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/handler/http/respond"
)

// PreviewHandler serves GET /preview: a JSON page of articles without feed
// assembly, for checking what a feed would contain.
type PreviewHandler struct{ Svc Service }

func (h PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := q.Get("url")

	limit, err := positiveIntParam(q.Get("limit"), 10)
	if err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, &entity.ValidationError{Field: "limit", Message: "limit must be a positive integer"}))
		return
	}
	page, err := positiveIntParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, rawURL, &entity.ValidationError{Field: "page", Message: "page must be a positive integer"}))
		return
	}

	articles, total, err := h.Svc.Articles(r.Context(), rawURL, limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, PreviewResponse{
		URL:      rawURL,
		Page:     page,
		Limit:    limit,
		Total:    total,
		Articles: toArticleDTOs(articles),
	})
}

func positiveIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &entity.ValidationError{Field: "param", Message: "must be a positive integer"}
	}
	return n, nil
}
