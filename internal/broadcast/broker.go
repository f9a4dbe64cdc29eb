// Package broadcast provides an in-memory pub/sub mechanism scoped by party
// code. The party core publishes one ordered stream of events per party; the
// websocket layer subscribes viewers to it.
package broadcast

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event is one broadcast message, scoped to a party code.
type Event struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster is the publish side of the bus. Publish is fire-and-forget: it
// never blocks the caller and never returns an error, but events published
// for one code arrive at each subscriber in publish order.
type Broadcaster interface {
	Publish(code string, ev Event)
}

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "auxparty_broadcast_dropped_total",
	Help: "Events dropped because a subscriber's buffer was full.",
})

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this loses events; the next snapshot makes it
// whole again.
const subscriberBuffer = 32

// Subscription is one subscriber's ordered event feed.
type Subscription struct {
	// C delivers events in publish order for the subscribed code.
	C    <-chan Event
	code string
	ch   chan Event
}

// Broker is a party-scoped pub/sub hub.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Ensure Broker implements Broadcaster
var _ Broadcaster = (*Broker)(nil)

// New creates a ready-to-use Broker.
func New() *Broker {
	return &Broker{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe returns a subscription that receives every event published for
// the given code until Unsubscribe is called.
func (b *Broker) Subscribe(code string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, code: code, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[*Subscription]struct{})
	}
	b.subs[code][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription from its code's subscriber set.
// If the code has no remaining subscribers, the entry is cleaned up.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.code]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.code)
		}
	}
}

// Publish sends the event to every subscriber for the given code without
// blocking. Sends happen under the broker lock, so all subscribers observe
// the same per-code order. A full subscriber drops the event.
func (b *Broker) Publish(code string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[code] {
		select {
		case sub.ch <- ev:
		default:
			droppedEvents.Inc()
		}
	}
}
