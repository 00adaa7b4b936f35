package postgres

import (
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier listens on Channel and wakes the subscriptions of the named
// collection. After a reconnect every subscription is woken because
// notifications may have been missed.
type Notifier struct {
	listener *pq.Listener
	log      *zap.Logger

	mu   sync.Mutex
	subs map[string]map[int]chan struct{}
	next int
	done chan struct{}
}

func NewNotifier(dsn string, log *zap.Logger) (*Notifier, error) {
	if log == nil {
		log = zap.NewNop()
	}
	onEvent := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("docstore listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	}
	l := pq.NewListener(dsn, 500*time.Millisecond, 30*time.Second, onEvent)
	if err := l.Listen(Channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}

	n := newNotifier(l, log)
	go n.run(l.Notify)
	return n, nil
}

func newNotifier(l *pq.Listener, log *zap.Logger) *Notifier {
	return &Notifier{
		listener: l,
		log:      log,
		subs:     map[string]map[int]chan struct{}{},
		done:     make(chan struct{}),
	}
}

// Watch returns a wake channel for collection and the func releasing it.
func (n *Notifier) Watch(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.subs[collection] == nil {
		n.subs[collection] = map[int]chan struct{}{}
	}
	key := n.next
	n.next++
	n.subs[collection][key] = ch
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		delete(n.subs[collection], key)
		n.mu.Unlock()
	}
}

func (n *Notifier) run(events <-chan *pq.Notification) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-n.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.dispatch(ev)
		case <-ping.C:
			if err := n.listener.Ping(); err != nil {
				n.log.Warn("docstore listener ping failed", zap.Error(err))
			}
		}
	}
}

// dispatch handles one notification; nil means the connection was
// re-established.
func (n *Notifier) dispatch(ev *pq.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ev == nil {
		for _, subs := range n.subs {
			wakeAll(subs)
		}
		return
	}
	wakeAll(n.subs[ev.Extra])
}

func wakeAll(subs map[int]chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *Notifier) Close() error {
	close(n.done)
	if n.listener == nil {
		return nil
	}
	return n.listener.Close()
}
