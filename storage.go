package radiowave

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// StorageOption customizes a single Storage call.
type StorageOption func(*storageOptions)

type storageOptions struct {
	tx bun.IDB
}

// WithTx makes the call run on a caller managed transaction. The
// transaction is forwarded verbatim to every persistence call.
func WithTx(tx bun.IDB) StorageOption {
	return func(o *storageOptions) {
		if tx != nil {
			o.tx = tx
		}
	}
}

func resolveStorageOptions(opts ...StorageOption) *storageOptions {
	o := &storageOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Storage is the membership service. It composes the repositories into
// the multi-step user, room and channel operations and publishes
// membership events.
type Storage struct {
	config  StorageConfig
	db      *bun.DB
	repos   RepositoryManager
	members MembershipStateMachine
	events  EventSink
	logger  Logger
	now     func() time.Time
}

// NewStorage creates a Storage that connects on Initialize.
func NewStorage(cfg StorageConfig) *Storage {
	return &Storage{
		config: cfg,
		events: noopEventSink{},
		logger: defLogger{},
		now:    time.Now,
	}
}

// NewStorageWithDB creates a Storage on an already opened database.
// Initialize only pings and synchronizes the schema.
func NewStorageWithDB(db *bun.DB) *Storage {
	s := NewStorage(nil)
	s.attach(db)
	return s
}

// WithEventSink sets the sink membership events are published to.
func (s *Storage) WithEventSink(sink EventSink) *Storage {
	s.events = normalizeEventSink(sink)
	return s
}

// WithLogger overrides the logger.
func (s *Storage) WithLogger(logger Logger) *Storage {
	s.logger = normalizeLogger(logger)
	if s.db != nil {
		s.members = NewMembershipStateMachine(s.db, s.repos.RoomMembers(), WithStateMachineLogger(s.logger))
	}
	return s
}

// WithClock injects the clock used to stamp events.
func (s *Storage) WithClock(clock func() time.Time) *Storage {
	if clock != nil {
		s.now = clock
	}
	return s
}

func (s *Storage) attach(db *bun.DB) {
	s.db = db
	s.repos = NewRepositoryManager(db)
	s.members = NewMembershipStateMachine(db, s.repos.RoomMembers(), WithStateMachineLogger(s.logger))
}

// Initialize connects to the configured backend and synchronizes the
// schema. Any failure is fatal for the Storage.
func (s *Storage) Initialize(ctx context.Context) error {
	if s.db == nil {
		db, err := OpenDB(s.config)
		if err != nil {
			return err
		}
		s.attach(db)
	}

	if err := s.repos.Validate(); err != nil {
		return err
	}

	if err := s.db.PingContext(ctx); err != nil {
		return persistenceError(err, "failed to connect to database")
	}

	if err := SyncSchema(ctx, s.db); err != nil {
		return err
	}

	s.logger.Info("storage initialized", "dialect", s.db.Dialect().Name().String())
	return nil
}

// DB returns the underlying database, nil before Initialize.
func (s *Storage) DB() *bun.DB {
	return s.db
}

// Repositories returns the repository manager, nil before Initialize.
func (s *Storage) Repositories() RepositoryManager {
	return s.repos
}

// Memberships returns the state machine guarding room membership rows.
func (s *Storage) Memberships() MembershipStateMachine {
	return s.members
}

// Close releases the database connection pool.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) idb(o *storageOptions) bun.IDB {
	if o.tx != nil {
		return o.tx
	}
	return s.db
}

// atomic runs fn in the caller transaction when one was supplied, or in
// a new transaction otherwise.
func (s *Storage) atomic(ctx context.Context, o *storageOptions, fn func(ctx context.Context, tx bun.IDB) error) error {
	if o.tx != nil {
		return fn(ctx, o.tx)
	}
	return s.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

func (s *Storage) publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "type", event.Type, "error", err)
	}
}

// FindUser returns the user for jid or ErrUserNotFound.
func (s *Storage) FindUser(ctx context.Context, jid string, opts ...StorageOption) (*User, error) {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return nil, ErrMissingJID
	}
	o := resolveStorageOptions(opts...)
	return s.repos.Users().ByJIDTx(ctx, s.idb(o), jid)
}

// FindOrCreateUser returns the user for jid, creating it on first use.
func (s *Storage) FindOrCreateUser(ctx context.Context, jid string, opts ...StorageOption) (*User, error) {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return nil, ErrMissingJID
	}
	o := resolveStorageOptions(opts...)
	return s.repos.Users().FindOrCreateByJIDTx(ctx, s.idb(o), jid)
}

// UpdateUser applies the fields set in data.
func (s *Storage) UpdateUser(ctx context.Context, user *User, data UserData, opts ...StorageOption) (*User, error) {
	if user == nil {
		return nil, ErrMissingUser
	}
	if data.Name == nil {
		return user, nil
	}
	o := resolveStorageOptions(opts...)
	return s.repos.Users().RenameTx(ctx, s.idb(o), user, *data.Name)
}
