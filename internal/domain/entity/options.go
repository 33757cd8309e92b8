package entity

import (
	"fmt"
	"strconv"
)

// Request option bounds enforced before any work is scheduled.
const (
	MaxOptionTitleLength       = 100
	MaxOptionDescriptionLength = 500
	MinLimit                   = 1
	MaxLimit                   = 50
)

// Options is the single record of caller-supplied feed overrides.
// A nil Limit means "not supplied"; absent options must not perturb the
// cache key, which Canonical guarantees.
type Options struct {
	Title       string
	Description string
	Limit       int // 0 = unset
}

// Validate checks the per-field bounds from the request contract.
func (o Options) Validate() error {
	if len([]rune(o.Title)) > MaxOptionTitleLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("title must not exceed %d characters", MaxOptionTitleLength)}
	}
	if len([]rune(o.Description)) > MaxOptionDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description must not exceed %d characters", MaxOptionDescriptionLength)}
	}
	if o.Limit != 0 && (o.Limit < MinLimit || o.Limit > MaxLimit) {
		return &ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between %d and %d", MinLimit, MaxLimit)}
	}
	return nil
}

// EffectiveLimit resolves the soft caller limit against the configured hard
// ceiling. An unset limit means the ceiling applies as-is.
func (o Options) EffectiveLimit(ceiling int) int {
	if o.Limit == 0 || o.Limit > ceiling {
		return ceiling
	}
	return o.Limit
}

// Canonical serializes the options in a fixed key order for cache-key
// derivation. Unset fields serialize to their zero forms so that two
// requests differing only in option spelling share a key.
func (o Options) Canonical() string {
	return "title=" + o.Title + ";description=" + o.Description + ";limit=" + strconv.Itoa(o.Limit)
}
