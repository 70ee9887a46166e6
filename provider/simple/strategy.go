package simple

import (
	"context"
	"crypto/subtle"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prasad83/radiowave"
)

const (
	Name   = "simple"
	Method = "PLAIN"
)

// ErrUserNotFound is returned for unknown users and wrong passwords alike.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryAuth).
	WithTextCode(radiowave.TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// Strategy authenticates local parts against a credential table owned by
// the instance. The table lives for the lifetime of the value.
type Strategy struct {
	mu     sync.RWMutex
	users  map[string]string
	logger radiowave.Logger
}

var _ radiowave.Strategy = (*Strategy)(nil)

// New returns an empty strategy.
func New() *Strategy {
	return &Strategy{
		users:  map[string]string{},
		logger: radiowave.DefaultLogger(),
	}
}

// WithLogger overrides the logger.
func (s *Strategy) WithLogger(logger radiowave.Logger) *Strategy {
	if logger == nil {
		logger = radiowave.DefaultLogger()
	}
	s.logger = logger
	return s
}

// AddUser registers or replaces the password for username.
func (s *Strategy) AddUser(username, password string) *Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
	return s
}

// Users returns the number of registered users
func (s *Strategy) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Strategy) Name() string {
	return Name
}

func (s *Strategy) Match(method string) bool {
	return method == Method
}

// Authenticate compares the password stored for the local part of
// opts.JID. The password is cleared from opts on every path.
func (s *Strategy) Authenticate(ctx context.Context, opts *radiowave.AuthOptions) (*radiowave.Identity, error) {
	if opts == nil {
		return nil, radiowave.ErrMissingData
	}
	defer opts.StripCredentials()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	username := opts.Username
	if opts.JID != "" {
		local, err := radiowave.LocalPart(opts.JID)
		if err != nil {
			s.logger.Debug("simple auth rejected jid", "jid", opts.JID, "error", err)
			return nil, ErrUserNotFound
		}
		username = local
	}

	s.mu.RLock()
	stored, ok := s.users[username]
	s.mu.RUnlock()

	if !ok || username == "" || !samePassword(stored, opts.Password) {
		s.logger.Debug("simple auth failed", "username", username)
		return nil, ErrUserNotFound
	}

	s.logger.Debug("simple auth succeeded", "username", username)

	return &radiowave.Identity{
		JID:      opts.JID,
		Username: username,
	}, nil
}

func samePassword(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
