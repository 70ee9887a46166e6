package radiowave

import (
	"context"
	"strings"
	"sync"
	"time"

	"mellium.im/xmpp/jid"
)

// Strategy authenticates a credential presented for a SASL style
// mechanism. Implementations must clear Password and Token on the
// options before returning, whatever the outcome.
type Strategy interface {
	Name() string
	Match(method string) bool
	Authenticate(ctx context.Context, opts *AuthOptions) (*Identity, error)
}

// AuthOptions carries the identity claimed by the client plus the
// credential fields a strategy needs.
type AuthOptions struct {
	JID      string
	Username string
	Password string
	Token    string
	Extra    map[string]any
}

// StripCredentials clears the password and token fields.
func (o *AuthOptions) StripCredentials() {
	if o == nil {
		return
	}
	o.Password = ""
	o.Token = ""
}

// Identity is the result of a successful authentication
type Identity struct {
	JID      string
	Username string
	Claims   map[string]any
}

// LocalPart returns the local part of a bare or full jid.
func LocalPart(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingJID
	}
	j, err := jid.Parse(s)
	if err != nil {
		return "", err
	}
	return j.Localpart(), nil
}

// BareJID strips the resource from a jid.
func BareJID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingJID
	}
	j, err := jid.Parse(s)
	if err != nil {
		return "", err
	}
	return j.Bare().String(), nil
}

// UserResolver maps an authenticated jid to its persistent user row.
type UserResolver interface {
	FindOrCreateUser(ctx context.Context, jid string, opts ...StorageOption) (*User, error)
}

// AuthResult is what Dispatcher.Authenticate resolves with
type AuthResult struct {
	Strategy string
	Identity *Identity
	User     *User
}

// Dispatcher selects a strategy by method, in registration order, and
// runs it. The first strategy whose Match returns true wins.
type Dispatcher struct {
	mu         sync.RWMutex
	strategies []Strategy
	users      UserResolver
	events     EventSink
	logger     Logger
	now        func() time.Time
}

// NewDispatcher registers the given strategies in order.
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{
		events: noopEventSink{},
		logger: defLogger{},
		now:    time.Now,
	}
	for _, s := range strategies {
		d.Register(s)
	}
	return d
}

// Register appends a strategy after the ones already registered.
func (d *Dispatcher) Register(s Strategy) *Dispatcher {
	if s == nil {
		return d
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strategies = append(d.strategies, s)
	return d
}

// WithUserResolver resolves the persistent user after a successful
// authentication.
func (d *Dispatcher) WithUserResolver(r UserResolver) *Dispatcher {
	d.users = r
	return d
}

// WithEventSink sets the sink login events are published to.
func (d *Dispatcher) WithEventSink(sink EventSink) *Dispatcher {
	d.events = normalizeEventSink(sink)
	return d
}

// WithLogger overrides the logger.
func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	d.logger = normalizeLogger(logger)
	return d
}

// Strategies returns the registered strategies in registration order.
func (d *Dispatcher) Strategies() []Strategy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Strategy, len(d.strategies))
	copy(out, d.strategies)
	return out
}

// Match returns the first strategy that handles method.
func (d *Dispatcher) Match(method string) (Strategy, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.strategies {
		if s.Match(method) {
			return s, nil
		}
	}
	return nil, ErrNoStrategy
}

// Authenticate runs the strategy matching method. Credentials are
// stripped from opts before any event is published or error returned.
func (d *Dispatcher) Authenticate(ctx context.Context, method string, opts *AuthOptions) (*AuthResult, error) {
	if opts == nil {
		return nil, ErrMissingData
	}

	strategy, err := d.Match(method)
	if err != nil {
		opts.StripCredentials()
		d.logger.Warn("no strategy for auth method", "method", method)
		d.emit(ctx, Event{
			Type:   EventLoginFailure,
			JID:    opts.JID,
			Method: method,
			Error:  err.Error(),
		})
		return nil, err
	}

	identity, err := strategy.Authenticate(ctx, opts)
	opts.StripCredentials()
	if err != nil {
		d.logger.Info("authentication rejected",
			"strategy", strategy.Name(),
			"jid", opts.JID,
			"username", opts.Username,
			"error", err,
		)
		d.emit(ctx, Event{
			Type:     EventLoginFailure,
			JID:      opts.JID,
			Method:   method,
			Strategy: strategy.Name(),
			Error:    err.Error(),
		})
		return nil, err
	}

	result := &AuthResult{
		Strategy: strategy.Name(),
		Identity: identity,
	}

	if d.users != nil && identity != nil && identity.JID != "" {
		bare, err := BareJID(identity.JID)
		if err != nil {
			return nil, err
		}
		user, err := d.users.FindOrCreateUser(ctx, bare)
		if err != nil {
			d.logger.Error("failed to resolve authenticated user", "jid", bare, "error", err)
			return nil, err
		}
		result.User = user
	}

	d.emit(ctx, Event{
		Type:     EventLoginSuccess,
		JID:      identityJID(identity),
		Method:   method,
		Strategy: strategy.Name(),
	})

	return result, nil
}

func (d *Dispatcher) emit(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}
	if err := d.events.Publish(ctx, event); err != nil {
		d.logger.Warn("event sink publish error", "type", event.Type, "error", err)
	}
}

func identityJID(identity *Identity) string {
	if identity == nil {
		return ""
	}
	return identity.JID
}
