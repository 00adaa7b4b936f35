// Package docstore defines the document database contract used by the
// repositories: named collections of schemaless documents keyed by opaque
// string ids, equality queries, atomic field operations and live snapshot
// subscriptions.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidQuery = errors.New("invalid query")
)

// Document is one stored record. Fields hold decoded values: string, bool,
// float64/int64, time.Time, []any and map[string]any.
type Document struct {
	ID         string
	Fields     map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection. OrderBy is optional and
// applies to a top-level field.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	out := q
	out.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return out
}

// Collection starts a query over name.
func Collection(name string) Query {
	return Query{Collection: name}
}

// Snapshot is the full result set of a subscribed query at one point in
// time. A snapshot with a non-nil Err is the last one on its channel.
type Snapshot struct {
	Docs     []Document
	ReadTime time.Time
	Err      error
}

// Update sets the field at Path (nested map keys) to Value. Value may be
// one of the sentinels returned by Delete, ServerTimestamp, ArrayUnion or
// ArrayRemove.
type Update struct {
	Path  []string
	Value any
}

// Set is shorthand for an Update of a single path.
func Set(value any, path ...string) Update {
	return Update{Path: path, Value: value}
}

type deleteField struct{}

type serverTimestamp struct{}

// ArrayOp is an atomic array transform.
type ArrayOp struct {
	Union  bool
	Values []any
}

// Delete removes the field at the update's path.
func Delete() any { return deleteField{} }

// ServerTimestamp is replaced by the store's commit time.
func ServerTimestamp() any { return serverTimestamp{} }

// ArrayUnion appends the values not already present.
func ArrayUnion(values ...any) any { return ArrayOp{Union: true, Values: values} }

// ArrayRemove removes every occurrence of the values.
func ArrayRemove(values ...any) any { return ArrayOp{Union: false, Values: values} }

// IsDelete reports whether v is the Delete sentinel.
func IsDelete(v any) bool {
	_, ok := v.(deleteField)
	return ok
}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Add creates a document with a generated id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Set writes a whole document, or merges top-level fields when merge is
	// true.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// Update applies field updates to an existing document atomically and
	// fails with ErrNotFound when it does not exist.
	Update(ctx context.Context, collection, id string, updates ...Update) error
	Delete(ctx context.Context, collection, id string) error
	// Subscribe delivers a snapshot of q immediately and then whenever its
	// result may have changed. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
	Close() error
}
