// Package store defines the tabular storage capability shared by the remote
// filtered-query client and the local JSON file store.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	TableUsers      = "users"
	TableSessions   = "sessions"
	TableSearchLogs = "search_logs"
)

var ErrUnknownTable = errors.New("unknown table")

// Row is a single record in storage shape (snake_case field names).
type Row map[string]any

// Filters are equality constraints on named fields. A nil value matches a
// null (or missing) field.
type Filters map[string]any

// Query selects rows from a table.
type Query struct {
	Columns []string // empty selects every column
	Filters Filters
	Limit   int // zero means unlimited
}

// Backend is the select/insert/update/delete capability both storage modes offer.
type Backend interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	// Update applies patch to every row matching filters and returns the
	// affected rows. No match yields an empty slice, not an error.
	Update(ctx context.Context, table string, patch Row, filters Filters) ([]Row, error)
	Delete(ctx context.Context, table string, filters Filters) error
}

// RequestError is a failed remote storage call. Transport failures carry
// status 503.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("storage request failed (%d): %s", e.Status, e.Message)
}

// Transport reports whether the failure happened before any HTTP response.
func (e *RequestError) Transport() bool {
	return e.Status == http.StatusServiceUnavailable
}

// Matches reports whether row satisfies every filter. Values are compared by
// their string form, as the remote protocol does.
func (f Filters) Matches(row Row) bool {
	for field, want := range f {
		got, present := row[field]
		if want == nil {
			if present && got != nil {
				return false
			}
			continue
		}
		if !present || got == nil || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
