package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/flume-app/flume-backend/internal/docstore"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	EventID   *string    `json:"eventId"`
	EventName *string    `json:"eventName"`
	SenderID  *string    `json:"senderId"`
	Read      bool       `json:"read"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// InboxSnapshot is one delivery of a user's inbox.
type InboxSnapshot struct {
	Items  []Notification
	Unread int
	Err    error
}

type Inbox struct {
	store docstore.Store
}

func NewInbox(store docstore.Store) *Inbox {
	return &Inbox{store: store}
}

// inboxQuery filters on userId only. Ordering by createdAt in the query
// would need a composite Firestore index, so fromDocs sorts instead.
func inboxQuery(userID string) docstore.Query {
	return docstore.Collection(Collection).Where("userId", userID)
}

// List returns the user's notifications newest first and the unread count.
func (i *Inbox) List(ctx context.Context, userID string) ([]Notification, int, error) {
	docs, err := i.store.Query(ctx, inboxQuery(userID))
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	items := fromDocs(docs)
	return items, countUnread(items), nil
}

func (i *Inbox) Watch(ctx context.Context, userID string) (<-chan InboxSnapshot, error) {
	snaps, err := i.store.Subscribe(ctx, inboxQuery(userID))
	if err != nil {
		return nil, err
	}
	out := make(chan InboxSnapshot)
	go func() {
		defer close(out)
		for snap := range snaps {
			next := InboxSnapshot{Err: snap.Err}
			if snap.Err == nil {
				next.Items = fromDocs(snap.Docs)
				next.Unread = countUnread(next.Items)
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// MarkRead flags one notification. Notifications of other users are
// reported as not found.
func (i *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	doc, err := i.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if doc.String("userId") != userID {
		return ErrNotFound
	}
	if doc.Bool("read") {
		return nil
	}
	return i.store.Update(ctx, Collection, id, docstore.Set(true, "read"))
}

// MarkAllRead flags every unread notification of the user and returns how
// many were changed. It stops at the first failed write.
func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int, error) {
	docs, err := i.store.Query(ctx, docstore.Collection(Collection).Where("userId", userID).Where("read", false))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if err := i.store.Update(ctx, Collection, d.ID, docstore.Set(true, "read")); err != nil {
			return n, fmt.Errorf("mark %s read: %w", d.ID, err)
		}
		n++
	}
	return n, nil
}

func fromDocs(docs []docstore.Document) []Notification {
	out := make([]Notification, 0, len(docs))
	for _, d := range docs {
		n := Notification{
			ID:        d.ID,
			UserID:    d.String("userId"),
			Title:     d.String("title"),
			Body:      d.String("body"),
			EventID:   optString(d, "eventId"),
			EventName: optString(d, "eventName"),
			SenderID:  optString(d, "senderId"),
			Read:      d.Bool("read"),
		}
		if t, ok := d.Time("createdAt"); ok {
			n.CreatedAt = &t
		}
		out = append(out, n)
	}
	sortNewestFirst(out)
	return out
}

// sortNewestFirst orders by createdAt descending. A missing timestamp is
// still pending on the server and sorts first.
func sortNewestFirst(items []Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].CreatedAt, items[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return items[i].ID > items[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.After(*b)
		}
		return items[i].ID > items[j].ID
	})
}

func optString(d docstore.Document, key string) *string {
	s, ok := d.Fields[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func countUnread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}
