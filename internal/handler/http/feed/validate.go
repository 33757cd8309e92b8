package feed

import (
	"encoding/json"
	"net/http"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/handler/http/respond"
)

// ValidateHandler serves POST /validate: probes whether a page is reachable,
// scrapeable, and has a native feed.
type ValidateHandler struct{ Svc Service }

func (h ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, entity.NewError(entity.KindInvalidInput, "", &entity.ValidationError{Field: "body", Message: "request body must be JSON with a url field"}))
		return
	}

	report, err := h.Svc.Validate(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, report)
}
