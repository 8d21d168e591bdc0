// Package events implements the EventBus component (spec §4.4): topic-based
// pub/sub with single-segment wildcard matching and asynchronous,
// non-blocking dispatch. Grounded on cuemby-warren's pkg/events.Broker
// (buffered publish channel + dedicated run loop), generalized from a fixed
// EventType enum broadcast to everyone into dot-segment topic matching
// against each subscriber's own pattern.
package events

import (
	"strings"
	"sync"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/log"
)

type subscription struct {
	id      uint64
	pattern string
	handler func(corestore.Event)
}

// Bus is the EventBus: Publish enqueues onto a buffered channel without
// waiting for delivery; a dedicated goroutine delivers matching events to
// subscribers in enqueue order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64

	eventCh chan corestore.Event
	stopCh  chan struct{}
}

var logger = log.WithComponent("eventbus")

// NewBus creates a Bus with a reasonably large publish buffer; callers
// publishing faster than subscribers can drain will block on Publish once
// the buffer fills (spec §5 "Bounding": mailboxes are unbounded in
// principle, but implementations may add queue caps as an extension).
func NewBus() *Bus {
	return &Bus{
		subs:    make(map[uint64]*subscription),
		eventCh: make(chan corestore.Event, 1024),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the dispatch loop.
func (b *Bus) Start() {
	go b.run()
}

// Stop halts dispatch. Buffered-but-undelivered events are dropped.
func (b *Bus) Stop() {
	close(b.stopCh)
}

// Publish enqueues event for asynchronous delivery (spec §4.4 "Dispatch
// model"). It returns at once while the 1024-event buffer has room; once
// the buffer is full it blocks until the dispatch loop frees a slot or the
// bus is stopped.
func (b *Bus) Publish(evt corestore.Event) {
	select {
	case b.eventCh <- evt:
	case <-b.stopCh:
	}
}

// On subscribes handler to every topic matching pattern (dot-segments,
// '*' matches exactly one segment, no globstar). Returns an unsubscribe
// function (spec §4.4 "Subscription").
func (b *Bus) On(pattern string, handler func(corestore.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{id: id, pattern: pattern, handler: handler}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) run() {
	for {
		select {
		case evt := <-b.eventCh:
			b.dispatch(evt)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) dispatch(evt corestore.Event) {
	topic := evt.Topic()

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if Match(s.pattern, topic) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		b.invoke(s, evt)
	}
}

// invoke calls a subscriber's handler, isolating the bus and every other
// subscriber from a panic (spec §4.4: "A subscriber's failure must not
// affect other subscribers or the publisher; the bus logs and continues").
func (b *Bus) invoke(s *subscription, evt corestore.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("topic", evt.Topic()).Msg("event subscriber panicked")
		}
	}()
	s.handler(evt)
}

// Match reports whether topic satisfies pattern: same segment count, every
// literal segment equal, every '*' segment matching anything.
func Match(pattern, topic string) bool {
	pSegs := strings.Split(pattern, ".")
	tSegs := strings.Split(topic, ".")
	if len(pSegs) != len(tSegs) {
		return false
	}
	for i, p := range pSegs {
		if p == "*" {
			continue
		}
		if p != tSegs[i] {
			return false
		}
	}
	return true
}
