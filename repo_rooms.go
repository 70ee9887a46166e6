package radiowave

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Rooms interface {
	repository.Repository[*Room]

	ByNameTx(ctx context.Context, tx bun.IDB, name string) (*Room, error)
	OwnedByTx(ctx context.Context, tx bun.IDB, owner *User, name string) (*Room, error)
	ListForUserTx(ctx context.Context, tx bun.IDB, user *User, affiliations []Affiliation, states []MembershipState) ([]*Room, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Room, criteria ...repository.InsertCriteria) (*Room, error)
	UpdateDetailsTx(ctx context.Context, tx bun.IDB, room *Room, data RoomData) (*Room, error)
	RemoveTx(ctx context.Context, tx bun.IDB, room *Room) error
}

type rooms struct {
	repository.Repository[*Room]
	db  *bun.DB
	now func() time.Time
}

var _ Rooms = (*rooms)(nil)

func NewRoomsRepository(db *bun.DB) Rooms {
	repo := repository.NewRepository[*Room](db, repository.ModelHandlers[*Room]{
		NewRecord: func() *Room { return &Room{} },
		GetID: func(r *Room) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Room, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &rooms{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// ByNameTx loads a room together with its members and their users.
func (r *rooms) ByNameTx(ctx context.Context, tx bun.IDB, name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingRoom
	}

	record := &Room{}
	err := tx.NewSelect().
		Model(record).
		Relation("Members").
		Relation("Members.User").
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrRoomNotFound
		}
		return nil, persistenceError(err, "failed to load room")
	}

	return record, nil
}

func (r *rooms) OwnedByTx(ctx context.Context, tx bun.IDB, owner *User, name string) (*Room, error) {
	if owner == nil || owner.ID == uuid.Nil {
		return nil, ErrMissingUser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingRoom
	}

	record := &Room{}
	err := tx.NewSelect().
		Model(record).
		Relation("Members").
		Relation("Members.User").
		Join("JOIN room_members AS owner_rm ON owner_rm.room_id = room.id").
		Where("owner_rm.user_id = ?", owner.ID).
		Where("owner_rm.affiliation = ?", AffiliationOwner).
		Where("room.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrRoomNotFound
		}
		return nil, persistenceError(err, "failed to load room")
	}

	return record, nil
}

// ListForUserTx returns the rooms where user has one of the given
// affiliations with a membership in one of the given states.
func (r *rooms) ListForUserTx(ctx context.Context, tx bun.IDB, user *User, affiliations []Affiliation, states []MembershipState) ([]*Room, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrMissingUser
	}

	records := []*Room{}
	q := tx.NewSelect().
		Model(&records).
		Relation("Members").
		Relation("Members.User").
		Join("JOIN room_members AS user_rm ON user_rm.room_id = room.id").
		Where("user_rm.user_id = ?", user.ID)

	if len(affiliations) > 0 {
		q = q.Where("user_rm.affiliation IN (?)", bun.In(affiliations))
	}

	if len(states) > 0 {
		q = q.Where("user_rm.state IN (?)", bun.In(states))
	}

	err := q.
		OrderExpr("room.name ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, persistenceError(err, "failed to list rooms")
	}

	return records, nil
}

func (r *rooms) CreateTx(ctx context.Context, tx bun.IDB, record *Room, criteria ...repository.InsertCriteria) (*Room, error) {
	if record == nil || strings.TrimSpace(record.Name) == "" {
		return nil, ErrMissingRoom
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := r.now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

// UpdateDetailsTx writes only the fields set in data.
func (r *rooms) UpdateDetailsTx(ctx context.Context, tx bun.IDB, room *Room, data RoomData) (*Room, error) {
	if room == nil || room.ID == uuid.Nil {
		return nil, ErrMissingRoom
	}

	if data.Subject == nil && data.Description == nil {
		return room, nil
	}

	now := r.now()
	q := tx.NewUpdate().
		Model(room).
		Set("updated_at = ?", now).
		WherePK()

	if data.Subject != nil {
		q = q.Set("subject = ?", *data.Subject)
	}

	if data.Description != nil {
		q = q.Set("description = ?", *data.Description)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to update room")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrRoomNotFound
	}

	if data.Subject != nil {
		room.Subject = *data.Subject
	}
	if data.Description != nil {
		room.Description = *data.Description
	}
	room.UpdatedAt = &now

	return room, nil
}

func (r *rooms) RemoveTx(ctx context.Context, tx bun.IDB, room *Room) error {
	if room == nil || room.ID == uuid.Nil {
		return ErrMissingRoom
	}

	_, err := tx.NewDelete().
		Model((*Room)(nil)).
		Where("id = ?", room.ID).
		Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to delete room")
	}
	return nil
}
