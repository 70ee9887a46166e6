package radiowave

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]

	ByJID(ctx context.Context, jid string) (*User, error)
	ByJIDTx(ctx context.Context, tx bun.IDB, jid string) (*User, error)
	FindOrCreateByJID(ctx context.Context, jid string) (*User, error)
	FindOrCreateByJIDTx(ctx context.Context, tx bun.IDB, jid string) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	RenameTx(ctx context.Context, tx bun.IDB, user *User, name string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "jid"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *users) ByJID(ctx context.Context, jid string) (*User, error) {
	return a.ByJIDTx(ctx, a.db, jid)
}

func (a *users) ByJIDTx(ctx context.Context, tx bun.IDB, jid string) (*User, error) {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return nil, ErrMissingJID
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.jid = ?", jid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError(err, "failed to load user")
	}

	return record, nil
}

func (a *users) FindOrCreateByJID(ctx context.Context, jid string) (*User, error) {
	return a.FindOrCreateByJIDTx(ctx, a.db, jid)
}

// FindOrCreateByJIDTx inserts the row only when the jid is unknown, so
// concurrent callers converge on the same user.
func (a *users) FindOrCreateByJIDTx(ctx context.Context, tx bun.IDB, jid string) (*User, error) {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return nil, ErrMissingJID
	}

	user, err := a.ByJIDTx(ctx, tx, jid)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	record := &User{JID: jid}
	a.prepareDefaults(record)

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (jid) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to create user")
	}

	return a.ByJIDTx(ctx, tx, jid)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil || strings.TrimSpace(record.JID) == "" {
		return nil, ErrMissingJID
	}
	a.prepareDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) RenameTx(ctx context.Context, tx bun.IDB, user *User, name string) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrMissingUser
	}

	now := a.now()
	res, err := tx.NewUpdate().
		Model(user).
		Set("name = ?", name).
		Set("updated_at = ?", now).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to update user")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}

	user.Name = name
	user.UpdatedAt = &now
	return user, nil
}

func (a *users) prepareDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.UUID == uuid.Nil {
		record.UUID = uuid.New()
	}

	now := a.now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
