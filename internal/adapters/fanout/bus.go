// Package fanout routes typed notifications to per-user, per-team and
// per-activity subscription rooms.
//
// Delivery is at-most-once with no persisted backlog: a client that is
// disconnected at publish time never receives that event and must re-fetch
// current state through the query APIs on reconnect. That is a deliberate
// design boundary of the channel, not a defect to compensate for here.
package fanout

import (
	"context"
	"sync"

	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/logger"
	"github.com/oxbane/podium/pkg/metrics"
)

const defaultSubscriberBuffer = 64

// Bus is an in-process publish/subscribe channel. Publishes never block on
// a slow subscriber: each subscription owns a bounded buffer with a
// drop-oldest overflow policy.
type Bus struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	log    logger.Logger
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithSubscriberBuffer sets the per-subscription queue depth.
func WithSubscriberBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBus builds a Bus with default configuration.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		rooms:  make(map[string]map[*Subscription]struct{}),
		buffer: defaultSubscriberBuffer,
		log:    logger.Named("fanout"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers the notification to every current subscriber of its
// room. Unknown or malformed notifications are dropped with a diagnostic
// and never forwarded. Delivery failures are local to a subscriber and
// never surface to the publisher.
//
// Events published sequentially by one caller reach a given subscriber in
// publish order; no ordering is guaranteed across rooms or publishers.
func (b *Bus) Publish(ctx context.Context, n model.Notification) {
	if !n.Type.Valid() || n.Room == "" {
		metrics.RecordEventDiscarded()
		b.log.Warn(ctx, "discarding malformed notification",
			logger.String("type", string(n.Type)),
			logger.String("room", n.Room),
		)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	metrics.RecordEventPublished(string(n.Type))
	for sub := range b.rooms[n.Room] {
		b.deliver(sub, n)
	}
}

// deliver performs a non-blocking send with drop-oldest on overflow. Called
// with the read lock held, which excludes concurrent channel closes.
func (b *Bus) deliver(sub *Subscription, n model.Notification) {
	select {
	case sub.ch <- n:
		return
	default:
	}
	// Buffer full: evict the oldest queued event, then try once more. The
	// subscriber may have drained concurrently, in which case the second
	// send just succeeds.
	select {
	case <-sub.ch:
		metrics.RecordEventDropped(string(n.Type))
	default:
	}
	select {
	case sub.ch <- n:
	default:
		metrics.RecordEventDropped(string(n.Type))
	}
}

// Subscribe attaches a new subscription to the room. The caller owns the
// subscription's lifetime and must release it with Close; nothing is
// cleaned up implicitly.
func (b *Bus) Subscribe(room string) *Subscription {
	sub := &Subscription{
		room: room,
		ch:   make(chan model.Notification, b.buffer),
		bus:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.detached = true
		return sub
	}
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[*Subscription]struct{})
		b.rooms[room] = members
	}
	members[sub] = struct{}{}
	metrics.UpdateSubscriberCount(b.subscriberCountLocked())
	return sub
}

// Close detaches all subscriptions and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, members := range b.rooms {
		for sub := range members {
			if !sub.detached {
				sub.detached = true
				close(sub.ch)
			}
		}
	}
	b.rooms = make(map[string]map[*Subscription]struct{})
	metrics.UpdateSubscriberCount(0)
}

// subscriberCountLocked counts attached subscriptions. Callers hold b.mu.
func (b *Bus) subscriberCountLocked() int {
	n := 0
	for _, members := range b.rooms {
		n += len(members)
	}
	return n
}

// Subscription is an owned handle on a room's event stream.
type Subscription struct {
	room     string
	ch       chan model.Notification
	bus      *Bus
	detached bool
	once     sync.Once
}

// Events returns the stream of notifications for the room. The channel is
// closed when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan model.Notification {
	return s.ch
}

// Room returns the room this subscription is attached to.
func (s *Subscription) Room() string {
	return s.room
}

// Close detaches the subscription and closes its event channel. It is safe
// to call more than once. In-flight publishes to other subscribers are
// unaffected; this subscriber simply stops receiving.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if s.detached {
			return
		}
		s.detached = true
		if members, ok := s.bus.rooms[s.room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(s.bus.rooms, s.room)
			}
		}
		close(s.ch)
		metrics.UpdateSubscriberCount(s.bus.subscriberCountLocked())
	})
}
