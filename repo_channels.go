package radiowave

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Channels interface {
	repository.Repository[*Channel]

	ByNameTx(ctx context.Context, tx bun.IDB, name string) (*Channel, error)
	OwnedByTx(ctx context.Context, tx bun.IDB, owner *User, name string) (*Channel, error)
	ListForUserTx(ctx context.Context, tx bun.IDB, user *User, affiliations []Affiliation) ([]*Channel, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Channel, criteria ...repository.InsertCriteria) (*Channel, error)
	RemoveTx(ctx context.Context, tx bun.IDB, channel *Channel) error
}

type channels struct {
	repository.Repository[*Channel]
	db  *bun.DB
	now func() time.Time
}

var _ Channels = (*channels)(nil)

func NewChannelsRepository(db *bun.DB) Channels {
	repo := repository.NewRepository[*Channel](db, repository.ModelHandlers[*Channel]{
		NewRecord: func() *Channel { return &Channel{} },
		GetID: func(c *Channel) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Channel, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &channels{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (c *channels) ByNameTx(ctx context.Context, tx bun.IDB, name string) (*Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingChannel
	}

	record := &Channel{}
	err := tx.NewSelect().
		Model(record).
		Relation("Subscribers").
		Relation("Subscribers.User").
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrChannelNotFound
		}
		return nil, persistenceError(err, "failed to load channel")
	}

	return record, nil
}

func (c *channels) OwnedByTx(ctx context.Context, tx bun.IDB, owner *User, name string) (*Channel, error) {
	if owner == nil || owner.ID == uuid.Nil {
		return nil, ErrMissingUser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingChannel
	}

	record := &Channel{}
	err := tx.NewSelect().
		Model(record).
		Relation("Subscribers").
		Relation("Subscribers.User").
		Join("JOIN channel_subs AS owner_cs ON owner_cs.channel_id = chn.id").
		Where("owner_cs.user_id = ?", owner.ID).
		Where("owner_cs.affiliation = ?", AffiliationOwner).
		Where("chn.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrChannelNotFound
		}
		return nil, persistenceError(err, "failed to load channel")
	}

	return record, nil
}

func (c *channels) ListForUserTx(ctx context.Context, tx bun.IDB, user *User, affiliations []Affiliation) ([]*Channel, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrMissingUser
	}

	records := []*Channel{}
	q := tx.NewSelect().
		Model(&records).
		Relation("Subscribers").
		Relation("Subscribers.User").
		Join("JOIN channel_subs AS user_cs ON user_cs.channel_id = chn.id").
		Where("user_cs.user_id = ?", user.ID)

	if len(affiliations) > 0 {
		q = q.Where("user_cs.affiliation IN (?)", bun.In(affiliations))
	}

	err := q.
		OrderExpr("chn.name ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, persistenceError(err, "failed to list channels")
	}

	return records, nil
}

func (c *channels) CreateTx(ctx context.Context, tx bun.IDB, record *Channel, criteria ...repository.InsertCriteria) (*Channel, error) {
	if record == nil || strings.TrimSpace(record.Name) == "" {
		return nil, ErrMissingChannel
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := c.now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	return c.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (c *channels) RemoveTx(ctx context.Context, tx bun.IDB, channel *Channel) error {
	if channel == nil || channel.ID == uuid.Nil {
		return ErrMissingChannel
	}

	_, err := tx.NewDelete().
		Model((*Channel)(nil)).
		Where("id = ?", channel.ID).
		Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to delete channel")
	}
	return nil
}
