// Package memory is an in-process docstore used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flume-app/flume-backend/internal/docstore"
)

type record struct {
	fields     map[string]any
	createTime time.Time
	updateTime time.Time
}

// Store keeps collections in maps guarded by one mutex. Subscribers are
// woken after every write to their collection.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*record
	watchers    map[string]map[int]chan struct{}
	nextWatcher int
	now         func() time.Time

	// failWrites holds errors returned by every write to the named
	// collection, simulating a rejected round-trip.
	failMu     sync.Mutex
	failWrites map[string]error
}

func New() *Store {
	return &Store{
		collections: map[string]map[string]*record{},
		watchers:    map[string]map[int]chan struct{}{},
		now:         time.Now,
		failWrites:  map[string]error{},
	}
}

// WithClock replaces the time source used for server timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailWrites makes writes to collection return err until cleared with nil.
func (s *Store) FailWrites(collection string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failWrites, collection)
		return
	}
	s.failWrites[collection] = err
}

func (s *Store) writeErr(collection string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failWrites[collection]
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return toDocument(id, rec), nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]docstore.Document, 0, len(s.collections[q.Collection]))
	for id, rec := range s.collections[q.Collection] {
		doc := toDocument(id, rec)
		if docstore.Matches(doc, q) {
			out = append(out, doc)
		}
	}
	docstore.SortDocuments(out, q)
	return out, nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writeErr(collection); err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now()
	coll := s.collection(collection)
	rec, exists := coll[id]
	resolved := docstore.ResolveFields(fields, now)
	switch {
	case exists && merge:
		for k, v := range resolved {
			rec.fields[k] = v
		}
		rec.updateTime = now
	case exists:
		rec.fields = resolved
		rec.updateTime = now
	default:
		coll[id] = &record{fields: resolved, createTime: now, updateTime: now}
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writeErr(collection); err != nil {
		return err
	}

	s.mu.Lock()
	rec, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	now := s.now()
	next := docstore.CloneFields(rec.fields)
	if err := docstore.ApplyUpdates(next, updates, now); err != nil {
		s.mu.Unlock()
		return err
	}
	rec.fields = next
	rec.updateTime = now
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writeErr(collection); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}

	wake := make(chan struct{}, 1)
	s.mu.Lock()
	if s.watchers[q.Collection] == nil {
		s.watchers[q.Collection] = map[int]chan struct{}{}
	}
	key := s.nextWatcher
	s.nextWatcher++
	s.watchers[q.Collection][key] = wake
	s.mu.Unlock()

	unwatch := func() {
		s.mu.Lock()
		delete(s.watchers[q.Collection], key)
		s.mu.Unlock()
	}

	fetch := func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}
	return docstore.Stream(ctx, fetch, wake, 0, unwatch), nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) collection(name string) map[string]*record {
	coll, ok := s.collections[name]
	if !ok {
		coll = map[string]*record{}
		s.collections[name] = coll
	}
	return coll
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers[collection] {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

func toDocument(id string, rec *record) docstore.Document {
	return docstore.Document{
		ID:         id,
		Fields:     docstore.CloneFields(rec.fields),
		CreateTime: rec.createTime,
		UpdateTime: rec.updateTime,
	}
}
