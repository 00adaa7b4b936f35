// Package firestore backs docstore with Cloud Firestore. Field
// operations map one-to-one onto Firestore transforms and subscriptions use
// native query snapshot listeners.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/flume-app/flume-backend/internal/docstore"
)

type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return docstore.Document{}, mapError(collection, id, err)
	}
	return fromSnapshot(snap), nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return fromSnapshots(snaps), nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, encodeFields(fields, false))
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	ref := s.client.Collection(collection).Doc(id)
	var err error
	if merge {
		_, err = ref.Set(ctx, encodeFields(fields, true), firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, encodeFields(fields, false))
	}
	if err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	fu, err := encodeUpdates(updates)
	if err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, fu); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

// Subscribe wraps a Firestore snapshot listener. Firestore already
// delivers full result sets, so every QuerySnapshot becomes one Snapshot.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}

	it := fq.Snapshots(ctx)
	out := make(chan docstore.Snapshot, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				send(out, docstore.Snapshot{Err: fmt.Errorf("listen %s: %w", q.Collection, err)})
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				send(out, docstore.Snapshot{Err: fmt.Errorf("listen %s: %w", q.Collection, err)})
				return
			}
			send(out, docstore.Snapshot{Docs: fromSnapshots(docs), ReadTime: qs.ReadTime})
		}
	}()
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) build(q docstore.Query) (firestore.Query, error) {
	if q.Collection == "" {
		return firestore.Query{}, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq, nil
}

// send keeps only the newest snapshot when the consumer falls behind.
func send(out chan docstore.Snapshot, s docstore.Snapshot) {
	select {
	case out <- s:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- s
}

func fromSnapshot(snap *firestore.DocumentSnapshot) docstore.Document {
	return docstore.Document{
		ID:         snap.Ref.ID,
		Fields:     snap.Data(),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func fromSnapshots(snaps []*firestore.DocumentSnapshot) []docstore.Document {
	out := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, fromSnapshot(snap))
	}
	return out
}

func mapError(collection, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return fmt.Errorf("%s/%s: %w", collection, id, err)
}
