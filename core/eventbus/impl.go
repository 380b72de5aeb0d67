package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ulogscraper-go/core/event"
)

// subscription represents a single event subscription.
type subscription struct {
	id        string
	handler   EventHandler
	sessionID string // Empty string means subscribe to all events
}

// channelEventBus is a channel-based implementation of EventBus.
type channelEventBus struct {
	eventChan     chan event.Event
	subscriptions map[string]*subscription
	order         []string
	mu            sync.RWMutex
	closeMu       sync.RWMutex
	closed        atomic.Bool
	wg            sync.WaitGroup
	nextID        atomic.Uint64
	logger        *slog.Logger
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) EventBus {
	return NewWithLogger(bufferSize, nil)
}

// NewWithLogger creates a new EventBus that reports dropped events and
// handler panics to logger.
func NewWithLogger(bufferSize int, logger *slog.Logger) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	bus := &channelEventBus{
		eventChan:     make(chan event.Event, bufferSize),
		subscriptions: make(map[string]*subscription),
		logger:        logger,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish publishes an event to all subscribers.
func (b *channelEventBus) Publish(e event.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed.Load() {
		return
	}

	// Non-blocking send with select to avoid blocking if buffer is full
	select {
	case b.eventChan <- e:
	default:
		b.logger.Warn("Event dropped, bus buffer full", "event", e.EventName())
	}
}

// Subscribe subscribes to all events.
func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

// SubscribeSession subscribes to events from a specific session.
func (b *channelEventBus) SubscribeSession(sessionID string, handler EventHandler) string {
	return b.subscribe(sessionID, handler)
}

func (b *channelEventBus) subscribe(sessionID string, handler EventHandler) string {
	id := b.generateID()

	b.mu.Lock()
	b.subscriptions[id] = &subscription{
		id:        id,
		handler:   handler,
		sessionID: sessionID,
	}
	b.order = append(b.order, id)
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subscriptions, subscriptionID)
	for i, id := range b.order {
		if id == subscriptionID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}

// Close shuts down the event bus.
func (b *channelEventBus) Close() {
	b.closeMu.Lock()
	if b.closed.Swap(true) {
		b.closeMu.Unlock()
		return // Already closed
	}
	close(b.eventChan)
	b.closeMu.Unlock()

	b.wg.Wait()
}

// dispatch is the main event dispatch loop.
func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.eventChan {
		b.deliverEvent(e)
	}
}

// deliverEvent delivers an event to all matching subscribers in subscription order.
func (b *channelEventBus) deliverEvent(e event.Event) {
	b.mu.RLock()
	// Copy subscriptions to avoid holding lock during handler execution
	subs := make([]*subscription, 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.subscriptions[id])
	}
	b.mu.RUnlock()

	// Get session ID if this is a session event
	var eventSessionID string
	if se, ok := e.(event.SessionEvent); ok {
		eventSessionID = se.SessionID()
	}

	for _, sub := range subs {
		// Filter by session ID if subscription is session-specific
		if sub.sessionID != "" {
			if eventSessionID == "" || sub.sessionID != eventSessionID {
				continue
			}
		}

		// Call handler (catch panics to prevent one bad handler from affecting others)
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Event handler panicked", "event", e.EventName(), "subscription", sub.id, "panic", r)
				}
			}()
			sub.handler(e)
		}()
	}
}

func (b *channelEventBus) generateID() string {
	return fmt.Sprintf("sub-%d", b.nextID.Add(1))
}
