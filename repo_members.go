package radiowave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoomMembers manages the room/user join rows explicitly.
type RoomMembers interface {
	CreateTx(ctx context.Context, tx bun.IDB, member *RoomMember) (*RoomMember, error)
	FindTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) (*RoomMember, error)
	ListByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) ([]*RoomMember, error)
	UpdateStateTx(ctx context.Context, tx bun.IDB, member *RoomMember, state MembershipState) (*RoomMember, error)
	DeleteTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) error
	DeleteByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) (int64, error)
}

type roomMembers struct {
	db  *bun.DB
	now func() time.Time
}

var _ RoomMembers = (*roomMembers)(nil)

func NewRoomMembersRepository(db *bun.DB) RoomMembers {
	return &roomMembers{db: db, now: time.Now}
}

func (r *roomMembers) CreateTx(ctx context.Context, tx bun.IDB, member *RoomMember) (*RoomMember, error) {
	if member == nil || member.RoomID == uuid.Nil {
		return nil, ErrMissingRoom
	}
	if member.UserID == uuid.Nil {
		return nil, ErrMissingUser
	}

	member.EnsureState()
	if member.Role == "" {
		member.Role = RoleNone
	}
	if member.Affiliation == "" {
		member.Affiliation = AffiliationNone
	}

	now := r.now()
	member.CreatedAt = &now
	member.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(member).Exec(ctx); err != nil {
		return nil, persistenceError(err, "failed to create room member")
	}
	return member, nil
}

func (r *roomMembers) FindTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) (*RoomMember, error) {
	record := &RoomMember{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.room_id = ?", roomID).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMembershipNotFound
		}
		return nil, persistenceError(err, "failed to load room member")
	}
	return record, nil
}

func (r *roomMembers) ListByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) ([]*RoomMember, error) {
	records := []*RoomMember{}
	err := tx.NewSelect().
		Model(&records).
		Relation("User").
		Where("?TableAlias.room_id = ?", roomID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, persistenceError(err, "failed to list room members")
	}
	return records, nil
}

func (r *roomMembers) UpdateStateTx(ctx context.Context, tx bun.IDB, member *RoomMember, state MembershipState) (*RoomMember, error) {
	if member == nil {
		return nil, ErrMembershipNotFound
	}

	now := r.now()
	res, err := tx.NewUpdate().
		Model((*RoomMember)(nil)).
		Set("state = ?", state).
		Set("updated_at = ?", now).
		Where("room_id = ?", member.RoomID).
		Where("user_id = ?", member.UserID).
		Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to update room member")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrMembershipNotFound
	}

	member.State = state
	member.UpdatedAt = &now
	return member, nil
}

func (r *roomMembers) DeleteTx(ctx context.Context, tx bun.IDB, roomID, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*RoomMember)(nil)).
		Where("room_id = ?", roomID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return persistenceError(err, "failed to delete room member")
	}
	return nil
}

func (r *roomMembers) DeleteByRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RoomMember)(nil)).
		Where("room_id = ?", roomID).
		Exec(ctx)
	if err != nil {
		return 0, persistenceError(err, "failed to delete room members")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
