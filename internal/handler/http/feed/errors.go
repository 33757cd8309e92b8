package feed

import (
	"net/http"
	"strconv"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/handler/http/respond"
)

// blockedRetryAfterSeconds matches the circuit breaker's open window.
const blockedRetryAfterSeconds = 300

// userMessages are the fixed client-facing strings per error kind.
// Production responses never echo upstream error text.
var userMessages = map[entity.Kind]string{
	entity.KindInvalidInput:      "invalid request parameters",
	entity.KindOriginTimeout:     "the origin site did not respond in time",
	entity.KindOriginUnreachable: "the origin site could not be reached",
	entity.KindOriginBlocked:     "the origin site is temporarily blocked after repeated failures",
	entity.KindOriginClient4xx:   "the origin site rejected the request",
	entity.KindOriginServer5xx:   "the origin site returned a server error",
	entity.KindParseFailure:      "the page content could not be turned into a feed",
	entity.KindNoArticles:        "no articles were found on the page",
	entity.KindRateLimited:       "too many requests",
	entity.KindInternal:          "internal server error",
}

var statusByKind = map[entity.Kind]int{
	entity.KindInvalidInput:      http.StatusBadRequest,
	entity.KindOriginTimeout:     http.StatusRequestTimeout,
	entity.KindOriginUnreachable: http.StatusBadGateway,
	entity.KindOriginBlocked:     http.StatusBadGateway,
	entity.KindOriginClient4xx:   http.StatusBadGateway,
	entity.KindOriginServer5xx:   http.StatusBadGateway,
	entity.KindParseFailure:      http.StatusUnprocessableEntity,
	entity.KindNoArticles:        http.StatusNotFound,
	entity.KindRateLimited:       http.StatusTooManyRequests,
	entity.KindInternal:          http.StatusInternalServerError,
}

// writeError maps a pipeline error onto the HTTP surface.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := entity.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if kind == entity.KindOriginBlocked {
		w.Header().Set("Retry-After", strconv.Itoa(blockedRetryAfterSeconds))
	}
	respond.Error(w, r, status, kind, userMessages[kind], err)
}
