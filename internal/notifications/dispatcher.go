package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/docstore"
)

const Collection = "Notifications"

type Dispatcher struct {
	store docstore.Store
	log   *zap.Logger
	loc   *time.Location
}

func NewDispatcher(store docstore.Store, log *zap.Logger, loc *time.Location) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{store: store, log: log, loc: loc}
}

// Result counts one dispatch. Attempted excludes the skipped sender.
type Result struct {
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
}

// Dispatch writes one unread notification per recipient, skipping the
// sender. Writes run concurrently; a failed write is logged and does not
// affect the others.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient, ev EventContext) Result {
	if len(recipients) == 0 {
		d.log.Info("no volunteers to notify")
		return Result{}
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result Result
	)
	for _, r := range recipients {
		if ev.SenderID != "" && r.ID == ev.SenderID {
			continue
		}
		result.Attempted++

		msg := ComposeMessage(r, ev, d.loc)
		wg.Add(1)
		go func(r Recipient, msg Message) {
			defer wg.Done()
			_, err := d.store.Add(ctx, Collection, map[string]any{
				"userId":    r.ID,
				"title":     msg.Subject,
				"body":      msg.Body,
				"eventId":   nullable(ev.EventID),
				"eventName": nullable(ev.EventName),
				"senderId":  nullable(ev.SenderID),
				"createdAt": docstore.ServerTimestamp(),
				"read":      false,
			})
			if err != nil {
				d.log.Error("create notification failed", zap.String("user_id", r.ID), zap.Error(err))
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}
			d.log.Debug("notification created",
				zap.String("user_id", r.ID),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject))
		}(r, msg)
	}
	wg.Wait()

	d.log.Info("notifications dispatched",
		zap.String("event_id", ev.EventID),
		zap.Int("attempted", result.Attempted),
		zap.Int("failed", result.Failed))
	return result
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
