package radiowave_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prasad83/radiowave"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func setupStorage(t *testing.T) (*radiowave.Storage, *eventRecorder) {
	t.Helper()

	recorder := &eventRecorder{}
	storage := radiowave.NewStorageWithDB(setupTestDB(t)).
		WithEventSink(recorder).
		WithLogger(&captureLogger{})

	require.NoError(t, storage.Initialize(context.Background()))
	return storage, recorder
}

func mustUser(t *testing.T, s *radiowave.Storage, jid string) *radiowave.User {
	t.Helper()
	user, err := s.FindOrCreateUser(context.Background(), jid)
	require.NoError(t, err)
	return user
}

func countMembers(t *testing.T, s *radiowave.Storage, room *radiowave.Room) int {
	t.Helper()
	members, err := s.Repositories().RoomMembers().ListByRoomTx(context.Background(), s.DB(), room.ID)
	require.NoError(t, err)
	return len(members)
}

func roomNames(rooms []*radiowave.Room) []string {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	return names
}

func channelNames(channels []*radiowave.Channel) []string {
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, c.Name)
	}
	return names
}

func strPtr(s string) *string {
	return &s
}
