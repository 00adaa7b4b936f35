package docstore

import (
	"context"
	"reflect"
	"time"
)

// Fetcher runs a query once.
type Fetcher func(ctx context.Context) ([]Document, error)

// Stream turns a one-shot fetcher into a snapshot subscription for
// backends without native change streams. It fetches immediately, then on
// every wake signal and every interval tick (interval <= 0 disables the
// ticker), and emits only when the result differs from the last snapshot.
// The channel holds at most one pending snapshot; a slow consumer sees the
// newest one. onDone, if set, runs after the channel is closed.
func Stream(ctx context.Context, fetch Fetcher, wake <-chan struct{}, interval time.Duration, onDone func()) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		defer func() {
			close(out)
			if onDone != nil {
				onDone()
			}
		}()

		var tick <-chan time.Time
		if interval > 0 {
			t := time.NewTicker(interval)
			defer t.Stop()
			tick = t.C
		}

		var last []Document
		first := true
		for {
			docs, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				offer(out, Snapshot{ReadTime: time.Now(), Err: err})
				return
			}
			if first || !reflect.DeepEqual(last, docs) {
				first = false
				last = docs
				offer(out, Snapshot{Docs: docs, ReadTime: time.Now()})
			}

			select {
			case <-ctx.Done():
				return
			case <-wake:
			case <-tick:
			}
		}
	}()

	return out
}

// offer replaces an unconsumed snapshot with s. Stream is the only sender.
func offer(out chan Snapshot, s Snapshot) {
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
