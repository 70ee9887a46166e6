package radiowave

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const memorySQLiteDSN = "file::memory:?cache=shared"

// OpenDB opens a bun database for the dialect named in cfg and applies
// the pool settings. It does not ping the server.
func OpenDB(cfg StorageConfig) (*bun.DB, error) {
	if cfg == nil {
		return nil, goerrors.New("no database options set", goerrors.CategoryValidation).
			WithTextCode(TextCodeMissingArgument).
			WithCode(goerrors.CodeBadRequest)
	}

	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.GetDialect())) {
	case DialectSQLite, "sqlite3", "":
		dsn := strings.TrimSpace(cfg.GetStoragePath())
		if dsn == "" || dsn == ":memory:" {
			dsn = memorySQLiteDSN
		}
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, persistenceError(err, "failed to open sqlite database")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DialectPostgres, "postgresql", "pg":
		connector := pgdriver.NewConnector(
			pgdriver.WithAddr(postgresAddr(cfg)),
			pgdriver.WithUser(cfg.GetUser()),
			pgdriver.WithPassword(cfg.GetPassword()),
			pgdriver.WithDatabase(cfg.GetDatabase()),
			pgdriver.WithApplicationName("radiowave"),
			pgdriver.WithInsecure(true),
		)
		sqldb = sql.OpenDB(connector)
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New(fmt.Sprintf("unsupported database dialect %q", cfg.GetDialect()), goerrors.CategoryValidation).
			WithTextCode(TextCodeMissingArgument).
			WithCode(goerrors.CodeBadRequest)
	}

	if n := cfg.GetMaxOpenConns(); n > 0 {
		sqldb.SetMaxOpenConns(n)
	}
	if n := cfg.GetMaxIdleConns(); n > 0 {
		sqldb.SetMaxIdleConns(n)
	}
	if d := cfg.GetConnMaxIdleTime(); d > 0 {
		sqldb.SetConnMaxIdleTime(d)
	}

	return db, nil
}

func postgresAddr(cfg StorageConfig) string {
	host := cfg.GetHost()
	if host == "" {
		host = "localhost"
	}
	port := cfg.GetPort()
	if port == 0 {
		port = 5432
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SyncSchema creates every table and index the package needs. Existing
// tables are left untouched.
func SyncSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*User)(nil),
		(*Room)(nil),
		(*RoomMember)(nil),
		(*Channel)(nil),
		(*ChannelSub)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return persistenceError(err, "failed to synchronize schema")
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*RoomMember)(nil), "idx_room_members_user", []string{"user_id", "affiliation", "state"}},
		{(*ChannelSub)(nil), "idx_channel_subs_user", []string{"user_id", "affiliation"}},
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return persistenceError(err, "failed to synchronize schema")
		}
	}

	return nil
}
