package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flume-app/flume-backend/internal/docstore"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("add then get", func(t *testing.T) {
		id, err := s.Add(ctx, "Project", map[string]any{"name": "Trail cleanup"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		doc, err := s.Get(ctx, "Project", id)
		require.NoError(t, err)
		assert.Equal(t, "Trail cleanup", doc.String("name"))
		assert.False(t, doc.CreateTime.IsZero())
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, "Project", "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("update missing returns ErrNotFound", func(t *testing.T) {
		err := s.Update(ctx, "Project", "nope", docstore.Set("x", "name"))
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		id, err := s.Add(ctx, "Project", map[string]any{"name": "tmp"})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "Project", id))
		require.NoError(t, s.Delete(ctx, "Project", id))
		_, err = s.Get(ctx, "Project", id)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("set merge keeps other fields", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "Users", "u1", map[string]any{"firstName": "Ada", "email": "a@x"}, false))
		require.NoError(t, s.Set(ctx, "Users", "u1", map[string]any{"email": "ada@x"}, true))
		doc, err := s.Get(ctx, "Users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", doc.String("firstName"))
		assert.Equal(t, "ada@x", doc.String("email"))
	})
}

func TestStore_FieldOperations(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Add(ctx, "Project", map[string]any{
		"registered_volunteers": map[string]any{},
		"attendance":            []any{},
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set("scout", "registered_volunteers", "u1")))
	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set("parent", "registered_volunteers", "u2")))
	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set(docstore.Delete(), "registered_volunteers", "u1")))
	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set(docstore.ArrayUnion("u2", "u3"), "attendance")))
	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set(docstore.ArrayUnion("u2"), "attendance")))
	require.NoError(t, s.Update(ctx, "Project", id, docstore.Set(docstore.ArrayRemove("u3"), "attendance")))

	doc, err := s.Get(ctx, "Project", id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u2": "parent"}, doc.StringMap("registered_volunteers"))
	assert.Equal(t, []string{"u2"}, doc.Strings("attendance"))
}

func TestStore_ServerTimestamp(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return fixed })

	id, err := s.Add(ctx, "Notifications", map[string]any{"createdAt": docstore.ServerTimestamp()})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "Notifications", id)
	require.NoError(t, err)
	ts, ok := doc.Time("createdAt")
	require.True(t, ok)
	assert.True(t, fixed.Equal(ts))
}

func TestStore_QueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, user := range []string{"a", "b", "a"} {
		_, err := s.Add(ctx, "Notifications", map[string]any{
			"userId":    user,
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	docs, err := s.Query(ctx, docstore.Query{
		Collection: "Notifications",
		Filters:    []docstore.Filter{{Field: "userId", Value: "a"}},
		OrderBy:    "createdAt",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	first, _ := docs[0].Time("createdAt")
	second, _ := docs[1].Time("createdAt")
	assert.True(t, first.After(second))
}

func TestStore_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()

	snaps, err := s.Subscribe(ctx, docstore.Collection("Project"))
	require.NoError(t, err)

	initial := <-snaps
	require.NoError(t, initial.Err)
	assert.Empty(t, initial.Docs)

	_, err = s.Add(context.Background(), "Project", map[string]any{"name": "p"})
	require.NoError(t, err)

	select {
	case snap := <-snaps:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Docs, 1)
		assert.Equal(t, "p", snap.Docs[0].String("name"))
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}

	cancel()
	for range snaps {
	}
	s.mu.RLock()
	assert.Empty(t, s.watchers["Project"])
	s.mu.RUnlock()
}

func TestStore_FailWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("unavailable")
	s.FailWrites("TimeRequests", boom)

	_, err := s.Add(ctx, "TimeRequests", map[string]any{})
	assert.ErrorIs(t, err, boom)

	s.FailWrites("TimeRequests", nil)
	_, err = s.Add(ctx, "TimeRequests", map[string]any{})
	assert.NoError(t, err)
}
