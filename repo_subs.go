package radiowave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ChannelSubs manages the channel/user join rows explicitly.
type ChannelSubs interface {
	CreateTx(ctx context.Context, tx bun.IDB, sub *ChannelSub) (*ChannelSub, error)
	FindTx(ctx context.Context, tx bun.IDB, channelID, userID uuid.UUID) (*ChannelSub, error)
	UpdateSubStateTx(ctx context.Context, tx bun.IDB, sub *ChannelSub, state SubState) (*ChannelSub, error)
	DeleteTx(ctx context.Context, tx bun.IDB, channelID, userID uuid.UUID) error
	DeleteByChannelTx(ctx context.Context, tx bun.IDB, channelID uuid.UUID) (int64, error)
}

type channelSubs struct {
	db  *bun.DB
	now func() time.Time
}

var _ ChannelSubs = (*channelSubs)(nil)

func NewChannelSubsRepository(db *bun.DB) ChannelSubs {
	return &channelSubs{db: db, now: time.Now}
}

func (r *channelSubs) CreateTx(ctx context.Context, tx bun.IDB, sub *ChannelSub) (*ChannelSub, error) {
	if sub == nil || sub.ChannelID == uuid.Nil {
		return nil, ErrMissingChannel
	}
	if sub.UserID == uuid.Nil {
		return nil, ErrMissingUser
	}

	sub.EnsureSubState()
	if sub.Affiliation == "" {
		sub.Affiliation = AffiliationNone
	}

	now := r.now()
	sub.CreatedAt = &now
	sub.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(sub).Exec(ctx); err != nil {
		return nil, persistenceError(err, "failed to create channel subscription")
	}
	return sub, nil
}

func (r *channelSubs) FindTx(ctx context.Context, tx bun.IDB, channelID, userID uuid.UUID) (*ChannelSub, error) {
	record := &ChannelSub{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.channel_id = ?", channelID).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMembershipNotFound
		}
		return nil, persistenceError(err, "failed to load channel subscription")
	}
	return record, nil
}

func (r *channelSubs) UpdateSubStateTx(ctx context.Context, tx bun.IDB, sub *ChannelSub, state SubState) (*ChannelSub, error) {
	if sub == nil {
		return nil, ErrMembershipNotFound
	}

	now := r.now()
	res, err := tx.NewUpdate().
		Model((*ChannelSub)(nil)).
		Set("substate = ?", state).
		Set("updated_at = ?", now).
		Where("channel_id = ?", sub.ChannelID).
		Where("user_id = ?", sub.UserID).
		Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to update channel subscription")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrMembershipNotFound
	}

	sub.SubState = state
	sub.UpdatedAt = &now
	return sub, nil
}

func (r *channelSubs) DeleteTx(ctx context.Context, tx bun.IDB, channelID, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*ChannelSub)(nil)).
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to delete channel subscription")
	}
	return nil
}

func (r *channelSubs) DeleteByChannelTx(ctx context.Context, tx bun.IDB, channelID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*ChannelSub)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	if err != nil {
		return 0, persistenceError(err, "failed to delete channel subscriptions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
