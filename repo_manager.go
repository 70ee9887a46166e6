package radiowave

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Rooms() Rooms
	Channels() Channels
	RoomMembers() RoomMembers
	ChannelSubs() ChannelSubs
}

type mngr struct {
	db          *bun.DB
	users       Users
	rooms       Rooms
	channels    Channels
	roomMembers RoomMembers
	channelSubs ChannelSubs
}

// NewRepositoryManager builds every repository on top of db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		rooms:       NewRoomsRepository(db),
		channels:    NewChannelsRepository(db),
		roomMembers: NewRoomMembersRepository(db),
		channelSubs: NewChannelSubsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.rooms == nil {
		return errors.New("repository rooms should be initialized")
	}

	if m.channels == nil {
		return errors.New("repository channels should be initialized")
	}

	if m.roomMembers == nil {
		return errors.New("repository roomMembers should be initialized")
	}

	if m.channelSubs == nil {
		return errors.New("repository channelSubs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Rooms() Rooms {
	return m.rooms
}

func (m mngr) Channels() Channels {
	return m.channels
}

func (m mngr) RoomMembers() RoomMembers {
	return m.roomMembers
}

func (m mngr) ChannelSubs() ChannelSubs {
	return m.channelSubs
}
