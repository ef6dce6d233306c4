package wikifetch

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the outcome of resolving a work item.
type Status string

// Status values. The set is closed; any other value is invalid.
const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFound, StatusNotFound:
		return true
	}
	return false
}

// FetchResult is the persisted outcome of resolving one work item.
type FetchResult struct {
	Key             string            `json:"key"`
	DisplayName     string            `json:"display_name"`
	Status          Status            `json:"status"`
	Document        *Document         `json:"document"`
	AttemptedTitles []string          `json:"attempted_titles"`
	FetchedAt       time.Time         `json:"fetched_at"`
	CarriedFields   map[string]string `json:"carried_fields"`
}

// Validate returns an error if the result contains invalid fields.
func (r *FetchResult) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return Errorf(EINVALID, "result key required")
	}
	if !r.Status.Valid() {
		return Errorf(EINVALID, "result %q has unknown status %q", r.Key, r.Status)
	}
	if r.Status == StatusFound && r.Document == nil {
		return Errorf(EINVALID, "result %q is found but has no document", r.Key)
	}
	return nil
}

// Field returns the carried field with the given name, or "" if absent.
func (r *FetchResult) Field(name string) string {
	if r.CarriedFields == nil {
		return ""
	}
	return r.CarriedFields[name]
}

// BodyLength returns the length of the document body in characters,
// or 0 when there is no document.
func (r *FetchResult) BodyLength() int {
	if r.Document == nil {
		return 0
	}
	return utf8.RuneCountInString(r.Document.Body)
}

// ResultStore persists fetch results, one per key.
type ResultStore interface {
	// PutResult persists the result under its key, replacing any prior
	// result. A reader never observes a partially-written result: it sees
	// either the prior result or the new one.
	PutResult(ctx context.Context, result *FetchResult) error

	// FindResult retrieves the result for key.
	// Returns ENOTFOUND if no result exists.
	FindResult(ctx context.Context, key string) (*FetchResult, error)

	// HasResult reports whether a result exists for key.
	HasResult(ctx context.Context, key string) bool
}

// ResultFilter represents a filter for FindResults.
type ResultFilter struct {
	Status   *Status `json:"status"`
	Category *string `json:"category"`

	// CategoryField names the carried field matched against Category.
	// Defaults to DefaultCategoryField.
	CategoryField string `json:"categoryField"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Match reports whether the result passes the filter. Offset and Limit are
// not considered.
func (f ResultFilter) Match(r *FetchResult) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Category != nil {
		field := f.CategoryField
		if field == "" {
			field = DefaultCategoryField
		}
		if r.Field(field) != *f.Category {
			return false
		}
	}
	return true
}

// ResultFinder lists persisted results.
type ResultFinder interface {
	// FindResults retrieves results matching the filter, ordered by key.
	FindResults(ctx context.Context, filter ResultFilter) ([]*FetchResult, error)
}

// ResultCatalog is a queryable mirror of the result store.
type ResultCatalog interface {
	ResultFinder

	// UpsertResult inserts the result or replaces the one with the same key.
	UpsertResult(ctx context.Context, result *FetchResult) error
}
