package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/log"
)

// DefaultActivitySize is the number of events kept by the activity monitor.
const DefaultActivitySize = 256

// ActivityMonitor keeps the most recent ledger events in a ring buffer. It
// subscribes itself to the event bus, so delivery never blocks the ledger.
type ActivityMonitor struct {
	bus    *event.EventBus
	size   int
	subs   map[event.EventType]event.EventSubscriberId
	mu     sync.RWMutex
	events []event.Event
	next   int
	full   bool
	cancel context.CancelFunc
}

// NewActivityMonitor creates an ActivityMonitor holding up to size events.
func NewActivityMonitor(bus *event.EventBus, size int) *ActivityMonitor {
	if size <= 0 {
		size = DefaultActivitySize
	}
	return &ActivityMonitor{
		bus:    bus,
		size:   size,
		events: make([]event.Event, size),
	}
}

// Start subscribes the monitor to the ledger events. It returns an error if
// the service is already running. The subscription ends when the context is
// done or Stop is called.
func (am *ActivityMonitor) Start(ctx context.Context) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	if am.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if am.bus == nil {
		return fmt.Errorf("missing event bus")
	}
	am.subs = make(map[event.EventType]event.EventSubscriberId)
	for _, t := range event.LedgerEventTypes {
		am.subs[t] = am.bus.RegisterSubscriber(t, am)
	}
	ctx, cancel := context.WithCancel(ctx)
	am.cancel = cancel
	go func() {
		<-ctx.Done()
		am.Stop()
	}()
	return nil
}

// Stop halts the monitoring service. The events received are kept.
func (am *ActivityMonitor) Stop() {
	am.mu.Lock()
	defer am.mu.Unlock()

	if am.cancel == nil {
		return
	}
	am.cancel()
	am.cancel = nil
	for t, id := range am.subs {
		am.bus.Unsubscribe(t, id)
	}
	am.subs = nil
	log.Debugw("activity monitor stopped")
}

// Deliver stores the event, overwriting the oldest one when the buffer is
// full.
func (am *ActivityMonitor) Deliver(evt event.Event) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.events[am.next] = evt
	am.next = (am.next + 1) % am.size
	if am.next == 0 {
		am.full = true
	}
	return nil
}

// Close is called by the bus when the subscription ends.
func (*ActivityMonitor) Close() {}

// Recent returns up to limit events, newest first.
func (am *ActivityMonitor) Recent(limit int) []event.Event {
	am.mu.RLock()
	defer am.mu.RUnlock()
	count := am.next
	if am.full {
		count = am.size
	}
	limit = min(limit, count)
	recent := make([]event.Event, 0, max(limit, 0))
	for i := 1; i <= limit; i++ {
		recent = append(recent, am.events[(am.next-i+am.size)%am.size])
	}
	return recent
}
