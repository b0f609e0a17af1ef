package audit

import (
	"sync"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Handler receives a critical audit event. Handlers run on the notifier
// pool and must not block indefinitely.
type Handler func(Event)

// Notifier fans critical events out to registered handlers on a bounded
// goroutine pool so recording never blocks on slow consumers.
type Notifier struct {
	pool *ants.Pool

	mu       sync.RWMutex
	handlers []Handler
}

// NewNotifier creates a notifier with the given pool size.
func NewNotifier(poolSize int) (*Notifier, error) {
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Notifier{pool: pool}, nil
}

// Subscribe registers a handler for critical events.
func (n *Notifier) Subscribe(h Handler) {
	if h == nil {
		return
	}

	n.mu.Lock()
	n.handlers = append(n.handlers, h)
	n.mu.Unlock()
}

// dispatch submits the event to every handler. Events are dropped when
// the pool is saturated; recording must never block on notification.
func (n *Notifier) dispatch(evt Event) {
	n.mu.RLock()
	handlers := n.handlers
	n.mu.RUnlock()

	for _, h := range handlers {
		h := h
		if err := n.pool.Submit(func() { h(evt) }); err != nil {
			logger.Warnw("dropping critical audit notification",
				"event_type", evt.Type,
				"error", err)
		}
	}
}

// Close releases the underlying pool.
func (n *Notifier) Close() error {
	n.pool.Release()
	return nil
}
