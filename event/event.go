// Package event implements the in-process bus the ledger publishes its state
// changes to. Read-side consumers (indexers, metrics, websocket feeds)
// subscribe to the event types they care about.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vocdoni/aadhaar-relief/log"
)

// EventQueueSize is the buffer of every channel subscriber. Events delivered
// to a full subscriber are dropped.
const EventQueueSize = 64

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber is a delivery abstraction. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// errSubscriberFull is returned by a channel subscriber whose buffer is full.
var errSubscriberFull = fmt.Errorf("subscriber queue full")

type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{ch: make(chan Event, buffer)}
}

// Deliver never blocks: the event is dropped if the buffer is full.
func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return errSubscriberFull
	}
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

// EventBus fans events out to the subscribers of their type.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	handlers    sync.WaitGroup
}

// NewEventBus creates a new EventBus. If promRegistry is not nil the bus
// registers its metrics there.
func NewEventBus(promRegistry prometheus.Registerer) *EventBus {
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

func (e *EventBus) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	e.metrics = &eventMetrics{
		eventsTotal: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_event_bus_events_total",
			Help: "number of events published by type",
		}, []string{"type"}),
		subscribers: promautoFactory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relief_event_bus_subscribers",
			Help: "current number of subscribers by event type",
		}, []string{"type"}),
		deliveryErrors: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_event_bus_delivery_errors_total",
			Help: "number of events that could not be delivered by type",
		}, []string{"type"}),
	}
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(eventType EventType) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(EventQueueSize)
	return e.RegisterSubscriber(eventType, sub), sub.ch
}

// SubscribeFunc runs handlerFunc on its own goroutine for every event of the
// type. The goroutine exits when the subscription is removed or the bus is
// stopped.
func (e *EventBus) SubscribeFunc(eventType EventType, handlerFunc EventHandlerFunc) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	e.handlers.Add(1)
	go func() {
		defer e.handlers.Done()
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds an external Subscriber implementation and returns
// the assigned subscriber id.
func (e *EventBus) RegisterSubscriber(eventType EventType, sub Subscriber) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][e.lastSubId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return e.lastSubId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var subToClose Subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if sub, ok := evtTypeSubs[subId]; ok {
			subToClose = sub
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			}
		}
	}
	e.mu.Unlock()

	if subToClose != nil {
		subToClose.Close()
	}
}

// Publish sends the event to all the subscribers of its type. It never blocks
// on a slow subscriber, so it is safe to call while holding a lock.
func (e *EventBus) Publish(evt Event) {
	e.mu.RLock()
	subs := make([]Subscriber, 0, len(e.subscribers[evt.Type]))
	for _, sub := range e.subscribers[evt.Type] {
		subs = append(subs, sub)
	}
	e.mu.RUnlock()

	for _, sub := range subs {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("subscriber deliver panic: %v", r)
				}
			}()
			err = sub.Deliver(evt)
		}()
		if err != nil {
			log.Debugw("event delivery error", "type", string(evt.Type), "error", err.Error())
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(evt.Type)).Inc()
			}
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop closes all the subscribers and waits for the SubscribeFunc handlers
// to return. The bus can still be used after Stop.
func (e *EventBus) Stop() {
	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()

	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
	e.handlers.Wait()
}
