package radiowave_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prasad83/radiowave"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRoomMembers implements radiowave.RoomMembers
type MockRoomMembers struct {
	mock.Mock
}

func (m *MockRoomMembers) CreateTx(ctx context.Context, tx bun.IDB, member *radiowave.RoomMember) (*radiowave.RoomMember, error) {
	args := m.Called(ctx, tx, member)
	if v := args.Get(0); v != nil {
		return v.(*radiowave.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomMembers) FindTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) (*radiowave.RoomMember, error) {
	args := m.Called(ctx, tx, roomID, userID)
	if v := args.Get(0); v != nil {
		return v.(*radiowave.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomMembers) ListByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) ([]*radiowave.RoomMember, error) {
	args := m.Called(ctx, tx, roomID)
	if v := args.Get(0); v != nil {
		return v.([]*radiowave.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomMembers) UpdateStateTx(ctx context.Context, tx bun.IDB, member *radiowave.RoomMember, state radiowave.MembershipState) (*radiowave.RoomMember, error) {
	args := m.Called(ctx, tx, member, state)
	if v := args.Get(0); v != nil {
		return v.(*radiowave.RoomMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomMembers) DeleteTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) error {
	args := m.Called(ctx, tx, roomID, userID)
	return args.Error(0)
}

func (m *MockRoomMembers) DeleteByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStrategy implements radiowave.Strategy
type MockStrategy struct {
	mock.Mock
	name    string
	methods []string
}

func newMockStrategy(name string, methods ...string) *MockStrategy {
	return &MockStrategy{name: name, methods: methods}
}

func (m *MockStrategy) Name() string {
	return m.name
}

func (m *MockStrategy) Match(method string) bool {
	for _, candidate := range m.methods {
		if candidate == method {
			return true
		}
	}
	return false
}

func (m *MockStrategy) Authenticate(ctx context.Context, opts *radiowave.AuthOptions) (*radiowave.Identity, error) {
	args := m.Called(ctx, opts)
	if v := args.Get(0); v != nil {
		return v.(*radiowave.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserResolver implements radiowave.UserResolver
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) FindOrCreateUser(ctx context.Context, jid string, opts ...radiowave.StorageOption) (*radiowave.User, error) {
	args := m.Called(ctx, jid)
	if v := args.Get(0); v != nil {
		return v.(*radiowave.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// eventRecorder collects published events
type eventRecorder struct {
	mu     sync.Mutex
	events []radiowave.Event
}

func (r *eventRecorder) Publish(_ context.Context, event radiowave.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) All() []radiowave.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]radiowave.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) OfType(t radiowave.EventType) []radiowave.Event {
	var out []radiowave.Event
	for _, e := range r.All() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// captureLogger records log lines by level
type captureLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (c *captureLogger) record(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		c.lines = map[string][]string{}
	}
	c.lines[level] = append(c.lines[level], msg)
}

func (c *captureLogger) Debug(msg string, args ...any) { c.record("debug", msg) }
func (c *captureLogger) Info(msg string, args ...any)  { c.record("info", msg) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.record("warn", msg) }
func (c *captureLogger) Error(msg string, args ...any) { c.record("error", msg) }

func (c *captureLogger) Lines(level string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines[level]...)
}
