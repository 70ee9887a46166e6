package radiowave

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// EventType enumerates the events published by Storage and Dispatcher.
type EventType string

const (
	EventRoomCreate     EventType = "room_create"
	EventRoomUpdate     EventType = "room_update"
	EventRoomDelete     EventType = "room_delete"
	EventMemberInvite   EventType = "member_invite"
	EventMemberDeclined EventType = "member_declined"
	EventLoginSuccess   EventType = "auth.login.success"
	EventLoginFailure   EventType = "auth.login.failure"
)

// Event carries the exported form of the affected room plus the actors
// involved. Fields that do not apply to an event type are left empty.
type Event struct {
	Type       EventType   `json:"type"`
	Room       *RoomExport `json:"room,omitempty"`
	Owner      *UserExport `json:"owner,omitempty"`
	Invitee    *UserExport `json:"invitee,omitempty"`
	Inviter    *UserExport `json:"inviter,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	JID        string      `json:"jid,omitempty"`
	Method     string      `json:"method,omitempty"`
	Strategy   string      `json:"strategy,omitempty"`
	Error      string      `json:"error,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// EventSink consumes published events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event Event) error

// Publish implements EventSink.
func (f EventSinkFunc) Publish(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, Event) error {
	return nil
}

func normalizeEventSink(s EventSink) EventSink {
	if s == nil {
		return noopEventSink{}
	}
	return s
}

// MultiSink publishes to every sink in order and joins their errors.
type MultiSink []EventSink

// Publish implements EventSink.
func (m MultiSink) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return goerrors.Join(errs...)
}

// EventBus fans events out to in-process subscribers. Publish never
// blocks: an event is dropped for any subscriber whose buffer is full.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	closed bool
	logger Logger
}

var _ EventSink = (*EventBus)(nil)

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{
		subs:   make(map[uint64]chan Event),
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used to report dropped events.
func (b *EventBus) WithLogger(logger Logger) *EventBus {
	b.logger = normalizeLogger(logger)
	return b
}

// Subscribe registers a subscriber with the given buffer size. The
// returned cancel func unregisters it and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish implements EventSink.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event bus subscriber is full, dropping event",
				"subscriber", id,
				"type", event.Type,
			)
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters and closes every subscriber channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}
