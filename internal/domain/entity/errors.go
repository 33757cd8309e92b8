package entity

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the pipeline can surface to a caller.
// Handlers map kinds to HTTP statuses; the core layers only ever attach a
// kind and a cause.
type Kind string

const (
	// KindInvalidInput marks malformed URLs, blocked hosts, or bad options.
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindOriginTimeout marks a fetch that exceeded its deadline.
	KindOriginTimeout Kind = "ORIGIN_TIMEOUT"

	// KindOriginUnreachable marks DNS or connection failures.
	KindOriginUnreachable Kind = "ORIGIN_UNREACHABLE"

	// KindOriginBlocked marks a fast-fail while the per-URL circuit is open.
	KindOriginBlocked Kind = "ORIGIN_BLOCKED"

	// KindOriginClient4xx marks a permanent upstream 4xx (no retries issued).
	KindOriginClient4xx Kind = "ORIGIN_CLIENT_ERROR"

	// KindOriginServer5xx marks an upstream 5xx that survived all retries.
	KindOriginServer5xx Kind = "ORIGIN_SERVER_ERROR"

	// KindParseFailure marks unusable HTML or a malformed feed document.
	KindParseFailure Kind = "PARSE_FAILURE"

	// KindNoArticles marks an extraction that produced no valid articles.
	KindNoArticles Kind = "NO_ARTICLES"

	// KindRateLimited marks client-facing request shedding.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindInternal marks anything unexpected; its client message is opaque.
	KindInternal Kind = "INTERNAL"
)

// FeedError is the error type carried across the pipeline. URL is the
// subject (page or feed URL), Status the upstream HTTP status when one
// exists, Err the wrapped cause.
type FeedError struct {
	Kind   Kind
	URL    string
	Status int
	Msg    string
	Err    error
}

// Error returns a formatted message including the kind and subject URL.
func (e *FeedError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d) %s: %s", e.Kind, e.Status, e.URL, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.URL, msg)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *FeedError) Unwrap() error { return e.Err }

// NewError builds a FeedError for the given kind and subject URL.
func NewError(kind Kind, url string, err error) *FeedError {
	return &FeedError{Kind: kind, URL: url, Err: err}
}

// NewStatusError builds a FeedError that records an upstream HTTP status.
func NewStatusError(kind Kind, url string, status int, msg string) *FeedError {
	return &FeedError{Kind: kind, URL: url, Status: status, Msg: msg}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// KindInternal.
func KindOf(err error) Kind {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
