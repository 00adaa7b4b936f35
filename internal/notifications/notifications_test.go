package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/docstore"
	"github.com/flume-app/flume-backend/internal/docstore/memory"
)

func TestComposeMessage(t *testing.T) {
	t.Run("full event context", func(t *testing.T) {
		msg := ComposeMessage(
			Recipient{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
			EventContext{
				EventName:        "Park Cleanup",
				EventDate:        time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC),
				EventDescription: "Bring gloves",
			},
			time.UTC,
		)

		assert.Equal(t, "ada@example.com", msg.To)
		assert.Equal(t, "Reminder: Submit Your Hours for Park Cleanup", msg.Subject)
		assert.Equal(t, "Dear Ada Lovelace,\n\n"+
			"This is a reminder to submit your volunteer hours for the event: Park Cleanup.\n\n"+
			"Event Date: 4/10/2026, 3:30:00 PM\n"+
			"\nEvent Description: Bring gloves\n"+
			"\nPlease log in to the volunteer portal to submit your hours.\n\n"+
			"Thank you for your service!\n\n"+
			"Best regards,\nVolunteer Management Team", msg.Body)
	})

	t.Run("no event context", func(t *testing.T) {
		msg := ComposeMessage(Recipient{FirstName: "Cher"}, EventContext{}, nil)

		assert.Equal(t, "Reminder: Submit Your Volunteer Hours", msg.Subject)
		assert.Equal(t, "Dear Cher,\n\n"+
			"This is a reminder to submit your volunteer hours.\n\n"+
			"\nPlease log in to the volunteer portal to submit your hours.\n\n"+
			"Thank you for your service!\n\n"+
			"Best regards,\nVolunteer Management Team", msg.Body)
	})
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC)

	t.Run("skips sender and writes unread notifications", func(t *testing.T) {
		store := memory.New().WithClock(func() time.Time { return fixed })
		d := NewDispatcher(store, zap.NewNop(), nil)

		res := d.Dispatch(ctx, []Recipient{
			{ID: "creator", FirstName: "Cy"},
			{ID: "v1", FirstName: "Vi"},
			{ID: "v2", FirstName: "Val"},
		}, EventContext{EventID: "p1", EventName: "Park", SenderID: "creator"})

		assert.Equal(t, Result{Attempted: 2}, res)
		docs, err := store.Query(ctx, docstore.Collection(Collection))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		for _, doc := range docs {
			assert.NotEqual(t, "creator", doc.String("userId"))
			assert.False(t, doc.Bool("read"))
			assert.Equal(t, "p1", doc.String("eventId"))
			assert.Equal(t, "creator", doc.String("senderId"))
			ts, ok := doc.Time("createdAt")
			require.True(t, ok)
			assert.True(t, fixed.Equal(ts))
		}
	})

	t.Run("missing context fields are stored as null", func(t *testing.T) {
		store := memory.New()
		d := NewDispatcher(store, zap.NewNop(), nil)

		res := d.Dispatch(ctx, []Recipient{{ID: "v1"}}, EventContext{})
		assert.Equal(t, 1, res.Attempted)

		docs, err := store.Query(ctx, docstore.Collection(Collection))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		for _, key := range []string{"eventId", "eventName", "senderId"} {
			v, present := docs[0].Fields[key]
			assert.True(t, present, key)
			assert.Nil(t, v, key)
		}
	})

	t.Run("failures are counted not returned", func(t *testing.T) {
		store := memory.New()
		store.FailWrites(Collection, errors.New("quota exceeded"))
		d := NewDispatcher(store, zap.NewNop(), nil)

		res := d.Dispatch(ctx, []Recipient{{ID: "v1"}, {ID: "v2"}}, EventContext{})
		assert.Equal(t, Result{Attempted: 2, Failed: 2}, res)
		assert.Equal(t, 0, store.Len(Collection))
	})

	t.Run("empty recipient list", func(t *testing.T) {
		d := NewDispatcher(memory.New(), nil, nil)
		assert.Equal(t, Result{}, d.Dispatch(ctx, nil, EventContext{}))
	})
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	inbox := NewInbox(store)

	add := func(user string, offset time.Duration, read bool) string {
		id, err := store.Add(ctx, Collection, map[string]any{
			"userId":    user,
			"title":     "t",
			"body":      "b",
			"eventId":   nil,
			"createdAt": base.Add(offset),
			"read":      read,
		})
		require.NoError(t, err)
		return id
	}
	older := add("u1", 0, false)
	newer := add("u1", time.Hour, false)
	add("u1", 30*time.Minute, true)
	other := add("u2", 0, false)

	t.Run("list is newest first with unread count", func(t *testing.T) {
		items, unread, err := inbox.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, newer, items[0].ID)
		assert.Equal(t, older, items[2].ID)
		assert.Equal(t, 2, unread)
		assert.Nil(t, items[0].EventID)
	})

	t.Run("ordering happens after the query", func(t *testing.T) {
		q := inboxQuery("u1")
		assert.Empty(t, q.OrderBy)

		pending, err := store.Add(ctx, Collection, map[string]any{"userId": "u3", "title": "t", "body": "b", "read": false})
		require.NoError(t, err)
		stamped, err := store.Add(ctx, Collection, map[string]any{"userId": "u3", "title": "t", "body": "b", "read": false, "createdAt": base})
		require.NoError(t, err)

		items, _, err := inbox.List(ctx, "u3")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, pending, items[0].ID)
		assert.Equal(t, stamped, items[1].ID)
	})

	t.Run("mark read is scoped to the recipient", func(t *testing.T) {
		assert.ErrorIs(t, inbox.MarkRead(ctx, "u1", other), ErrNotFound)
		assert.ErrorIs(t, inbox.MarkRead(ctx, "u1", "missing"), ErrNotFound)

		require.NoError(t, inbox.MarkRead(ctx, "u1", older))
		_, unread, err := inbox.List(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
	})

	t.Run("mark all read", func(t *testing.T) {
		n, err := inbox.MarkAllRead(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, unread, err := inbox.List(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, unread)

		_, unread, err = inbox.List(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
	})

	t.Run("watch delivers unread count", func(t *testing.T) {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		snaps, err := inbox.Watch(wctx, "u2")
		require.NoError(t, err)

		first := <-snaps
		require.NoError(t, first.Err)
		assert.Equal(t, 1, first.Unread)

		add("u2", 2*time.Hour, false)
		select {
		case next := <-snaps:
			require.NoError(t, next.Err)
			assert.Equal(t, 2, next.Unread)
		case <-time.After(2 * time.Second):
			t.Fatal("no snapshot after new notification")
		}
	})
}
