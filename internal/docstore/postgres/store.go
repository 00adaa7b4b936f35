// Package postgres stores documents as JSONB rows in a single table. It
// serves deployments without Firestore; change streams are polled and
// woken early by LISTEN/NOTIFY.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/flume-app/flume-backend/internal/docstore"
)

// Channel is the NOTIFY channel written after every committed change; the
// payload is the collection name.
const Channel = "docstore_changes"

// Schema creates the documents table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
  collection  text        NOT NULL,
  id          text        NOT NULL,
  fields      jsonb       NOT NULL DEFAULT '{}'::jsonb,
  created_at  timestamptz NOT NULL DEFAULT now(),
  updated_at  timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_fields_idx ON documents USING gin (fields jsonb_path_ops);
`

// Waker hands out wake-up channels per collection.
type Waker interface {
	Watch(collection string) (<-chan struct{}, func())
}

type Store struct {
	db           *sql.DB
	waker        Waker
	pollInterval time.Duration
	now          func() time.Time
}

type Option func(*Store)

// WithWaker makes subscriptions refetch as soon as a change is announced.
func WithWaker(w Waker) Option {
	return func(s *Store) { s.waker = w }
}

// WithPollInterval sets how often subscriptions refetch without a wake-up.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.pollInterval = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, pollInterval: 2 * time.Second, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	const q = `
SELECT fields, created_at, updated_at
FROM documents
WHERE collection = $1 AND id = $2;
`
	var raw []byte
	doc := docstore.Document{ID: id}
	err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&raw, &doc.CreateTime, &doc.UpdateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if doc.Fields, err = decodeFields(raw); err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	out := make([]docstore.Document, 0, 16)
	for rows.Next() {
		var (
			doc docstore.Document
			raw []byte
		)
		if err := rows.Scan(&doc.ID, &raw, &doc.CreateTime, &doc.UpdateTime); err != nil {
			return nil, err
		}
		if doc.Fields, err = decodeFields(raw); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, doc.ID, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	docstore.SortDocuments(out, q)
	return out, nil
}

func buildSelect(q docstore.Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT id, fields, created_at, updated_at FROM documents WHERE collection = $1")
	args := []any{q.Collection}
	for _, f := range q.Filters {
		val, err := encodeValue(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: filter %s: %v", docstore.ErrInvalidQuery, f.Field, err)
		}
		args = append(args, f.Field, string(val))
		fmt.Fprintf(&b, " AND fields->$%d = $%d::jsonb", len(args)-1, len(args))
	}
	b.WriteString(" ORDER BY id;")
	return b.String(), args, nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	now := s.now().UTC()
	deleted := []string{}
	for k, v := range fields {
		if docstore.IsDelete(v) {
			deleted = append(deleted, k)
		}
	}
	raw, err := encodeFields(docstore.ResolveFields(fields, now))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	const replace = `
INSERT INTO documents (collection, id, fields, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (collection, id) DO UPDATE
SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at;
`
	const mergeQ = `
INSERT INTO documents (collection, id, fields, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (collection, id) DO UPDATE
SET fields = (documents.fields || EXCLUDED.fields) - $5::text[], updated_at = EXCLUDED.updated_at;
`
	return s.inTx(ctx, collection, func(tx *sql.Tx) error {
		if merge {
			_, err := tx.ExecContext(ctx, mergeQ, collection, id, string(raw), now, pq.Array(deleted))
			return err
		}
		_, err := tx.ExecContext(ctx, replace, collection, id, string(raw), now)
		return err
	})
}

// Update locks the row, applies the updates in Go and writes the result
// back in the same transaction, so concurrent field operations on one
// document serialize.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	const sel = `
SELECT fields FROM documents
WHERE collection = $1 AND id = $2
FOR UPDATE;
`
	const upd = `
UPDATE documents SET fields = $3, updated_at = $4
WHERE collection = $1 AND id = $2;
`
	return s.inTx(ctx, collection, func(tx *sql.Tx) error {
		var raw []byte
		err := tx.QueryRowContext(ctx, sel, collection, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		if err != nil {
			return err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := docstore.ApplyUpdates(fields, updates, now); err != nil {
			return err
		}
		next, err := encodeFields(fields)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, upd, collection, id, string(next), now)
		return err
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2;`
	return s.inTx(ctx, collection, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q, collection, id)
		return err
	})
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}
	var (
		wake    <-chan struct{}
		unwatch func()
	)
	if s.waker != nil {
		wake, unwatch = s.waker.Watch(q.Collection)
	}
	fetch := func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}
	return docstore.Stream(ctx, fetch, wake, s.pollInterval, unwatch), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn and announces the change on Channel before committing.
func (s *Store) inTx(ctx context.Context, collection string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2);`, Channel, collection); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
