package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/prasad83/radiowave"
	"github.com/prasad83/radiowave/roster"
	"github.com/uptrace/bun"
)

// RosterItemModel is the Bun model for roster entries. Owner and JID are
// bare jids; the pair is unique.
type RosterItemModel struct {
	bun.BaseModel `bun:"table:roster_items,alias:ri"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	Owner        string    `bun:"owner,notnull"`
	JID          string    `bun:"jid,notnull"`
	Name         string    `bun:"name"`
	Groups       []string  `bun:"groups,type:jsonb"`
	Subscription string    `bun:"subscription,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// RosterItemRepository implements roster.Store using Bun.
type RosterItemRepository struct {
	db  bun.IDB
	now func() time.Time
}

var _ roster.Store = (*RosterItemRepository)(nil)

// NewRosterItemRepository creates a new repository.
func NewRosterItemRepository(db bun.IDB) *RosterItemRepository {
	return &RosterItemRepository{db: db, now: time.Now}
}

// WithTx returns a repository bound to tx.
func (r *RosterItemRepository) WithTx(tx bun.IDB) *RosterItemRepository {
	return &RosterItemRepository{db: tx, now: r.now}
}

// SyncSchema creates the roster_items table and its unique (owner, jid) index.
func (r *RosterItemRepository) SyncSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*RosterItemModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return persistenceError(err, "failed to create roster_items")
	}

	if _, err := r.db.NewCreateIndex().
		Model((*RosterItemModel)(nil)).
		Index("idx_roster_items_owner_jid").
		Unique().
		IfNotExists().
		Column("owner", "jid").
		Exec(ctx); err != nil {
		return persistenceError(err, "failed to create roster_items index")
	}
	return nil
}

// List implements roster.Store.
func (r *RosterItemRepository) List(ctx context.Context, owner string) ([]roster.Item, error) {
	var models []RosterItemModel
	err := r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.owner = ?", normalize(owner)).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.jid ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistenceError(err, "failed to list roster items")
	}

	items := make([]roster.Item, len(models))
	for i := range models {
		items[i] = toItem(&models[i])
	}
	return items, nil
}

// Get implements roster.Store.
func (r *RosterItemRepository) Get(ctx context.Context, owner, jid string) (*roster.Item, error) {
	model, err := r.find(ctx, owner, jid)
	if err != nil {
		return nil, err
	}
	item := toItem(model)
	return &item, nil
}

// Add implements roster.Store. Subscription defaults to none.
func (r *RosterItemRepository) Add(ctx context.Context, owner string, item roster.Item) error {
	if err := item.Verify(); err != nil {
		return err
	}

	now := r.now()
	model := fromItem(owner, item)
	model.ID = uuid.New()
	model.CreatedAt = now
	model.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return persistenceError(err, "failed to add roster item")
	}
	return nil
}

// Update implements roster.Store. The stored subscription is kept unless
// item carries one.
func (r *RosterItemRepository) Update(ctx context.Context, owner string, item roster.Item) error {
	if err := item.Verify(); err != nil {
		return err
	}

	model := fromItem(owner, item)
	model.UpdatedAt = r.now()
	q := r.db.NewUpdate().
		Model(model).
		Column("name", "groups", "updated_at").
		Where("owner = ?", model.Owner).
		Where("jid = ?", model.JID)
	if item.Subscription != "" {
		q = q.Column("subscription")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to update roster item")
	}
	return requireAffected(res)
}

// Delete implements roster.Store.
func (r *RosterItemRepository) Delete(ctx context.Context, owner, jid string) error {
	res, err := r.db.NewDelete().
		Model((*RosterItemModel)(nil)).
		Where("owner = ?", normalize(owner)).
		Where("jid = ?", normalize(jid)).
		Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to delete roster item")
	}
	return requireAffected(res)
}

func (r *RosterItemRepository) find(ctx context.Context, owner, jid string) (*RosterItemModel, error) {
	model := &RosterItemModel{}
	err := r.db.NewSelect().
		Model(model).
		Where("?TableAlias.owner = ?", normalize(owner)).
		Where("?TableAlias.jid = ?", normalize(jid)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrItemNotFound
	}
	if err != nil {
		return nil, persistenceError(err, "failed to find roster item")
	}
	return model, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistenceError(err, "failed to read affected rows")
	}
	if n == 0 {
		return roster.ErrItemNotFound
	}
	return nil
}

func toItem(m *RosterItemModel) roster.Item {
	groups := m.Groups
	if groups == nil {
		groups = []string{}
	}
	return roster.Item{
		JID:          m.JID,
		Name:         m.Name,
		Groups:       groups,
		Subscription: m.Subscription,
	}
}

func fromItem(owner string, item roster.Item) *RosterItemModel {
	groups := item.Groups
	if groups == nil {
		groups = []string{}
	}
	subscription := item.Subscription
	if subscription == "" {
		subscription = roster.SubscriptionNone
	}
	return &RosterItemModel{
		Owner:        normalize(owner),
		JID:          normalize(item.JID),
		Name:         item.Name,
		Groups:       groups,
		Subscription: subscription,
	}
}

func normalize(jid string) string {
	return strings.ToLower(strings.TrimSpace(jid))
}

func persistenceError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(radiowave.TextCodePersistence).
		WithCode(goerrors.CodeInternal)
}
