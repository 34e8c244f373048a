package orchestration

import (
	"sync"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// Committed carries the events one operation wrote for an incident, after the
// transaction committed.
type Committed struct {
	IncidentID string
	PropertyID string
	Status     entities.IncidentStatus
	Events     []entities.IncidentEvent
	Timestamp  time.Time
}

// CommittedHandler processes committed events.
type CommittedHandler func(c *Committed)

const (
	// eventBusBufferSize is the capacity of the async event channel.
	eventBusBufferSize = 1000
)

// EventBus is an async pub/sub for committed incident events. Publish never
// blocks the engine: batches go to a buffered channel served by one worker.
type EventBus struct {
	handlers []CommittedHandler
	mu       sync.RWMutex
	eventCh  chan *Committed
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	onDrop   func()
}

// NewEventBus creates an event bus and starts its worker.
func NewEventBus() *EventBus {
	return newEventBus(eventBusBufferSize)
}

func newEventBus(size int) *EventBus {
	b := &EventBus{
		eventCh: make(chan *Committed, size),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler.
func (b *EventBus) Subscribe(handler CommittedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// OnDrop registers a hook called for every batch dropped on a full buffer.
func (b *EventBus) OnDrop(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Publish enqueues a batch. If the buffer is full the batch is dropped.
// Batches published after Stop are discarded.
func (b *EventBus) Publish(c *Committed) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- c:
	default:
		b.mu.RLock()
		onDrop := b.onDrop
		b.mu.RUnlock()
		if onDrop != nil {
			onDrop()
		}
	}
}

// Stop shuts down the worker after draining queued batches and waits for it
// to exit. Safe to call multiple times.
func (b *EventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

func (b *EventBus) processLoop() {
	defer close(b.doneCh)
	for {
		select {
		case c := <-b.eventCh:
			b.dispatch(c)
		case <-b.stopCh:
			for {
				select {
				case c := <-b.eventCh:
					b.dispatch(c)
				default:
					return
				}
			}
		}
	}
}

func (b *EventBus) dispatch(c *Committed) {
	b.mu.RLock()
	handlers := make([]CommittedHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, c)
	}
}

// safeCall keeps a panicking handler from killing the worker.
func (b *EventBus) safeCall(handler CommittedHandler, c *Committed) {
	defer func() {
		recover() //nolint:errcheck // handlers log their own failures
	}()
	handler(c)
}
