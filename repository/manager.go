package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/prasad83/radiowave"
	"github.com/uptrace/bun"
)

// Manager extends the membership repositories with the roster store.
type Manager interface {
	radiowave.RepositoryManager
	RosterItems() *RosterItemRepository
	SyncSchema(ctx context.Context) error
}

type mngr struct {
	radiowave.RepositoryManager
	db          *bun.DB
	rosterItems *RosterItemRepository
}

// NewRepositoryManager builds the membership and roster repositories on db
func NewRepositoryManager(db *bun.DB) Manager {
	return &mngr{
		RepositoryManager: radiowave.NewRepositoryManager(db),
		db:                db,
		rosterItems:       NewRosterItemRepository(db),
	}
}

func (m mngr) Validate() error {
	if err := m.RepositoryManager.Validate(); err != nil {
		return err
	}

	if m.rosterItems == nil {
		return errors.New("repository rosterItems should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return m.RepositoryManager.RunInTx(ctx, opts, f)
}

func (m mngr) RosterItems() *RosterItemRepository {
	return m.rosterItems
}

// SyncSchema creates the membership tables and roster_items in one transaction.
func (m mngr) SyncSchema(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := radiowave.SyncSchema(ctx, tx); err != nil {
			return err
		}
		return m.rosterItems.WithTx(tx).SyncSchema(ctx)
	})
}
