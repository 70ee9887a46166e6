package radiowave_test

import (
	"context"
	"testing"

	"github.com/prasad83/radiowave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageAddChannelCreatesOwnerSubscription(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	owner := mustUser(t, storage, "romeo@example.net")

	channel, err := storage.AddChannel(ctx, owner, "news")
	require.NoError(t, err)
	require.Len(t, channel.Subscribers, 1)

	sub := channel.Subscriber("romeo@example.net")
	require.NotNil(t, sub)
	assert.Equal(t, radiowave.AffiliationOwner, sub.Affiliation)
	assert.Equal(t, radiowave.SubStateMember, sub.SubState)

	found, err := storage.GetChannel(ctx, owner, "news")
	require.NoError(t, err)
	assert.Equal(t, channel.ID, found.ID)
}

func TestStorageFindChannelNotFound(t *testing.T) {
	storage, _ := setupStorage(t)

	_, err := storage.FindChannel(context.Background(), "nothing")
	require.Error(t, err)
	assert.ErrorIs(t, err, radiowave.ErrChannelNotFound)
	assert.True(t, radiowave.HasTextCode(err, radiowave.TextCodeChannelNotFound))
}

func TestStorageFindOrCreateChannelAssociatesCreator(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()

	created, err := storage.FindOrCreateChannel(ctx, &radiowave.User{JID: "juliet@example.net"}, "news")
	require.NoError(t, err)
	require.NotNil(t, created.Subscriber("juliet@example.net"))

	again, err := storage.FindOrCreateChannel(ctx, mustUser(t, storage, "romeo@example.net"), "news")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Nil(t, again.Subscriber("romeo@example.net"))
}

func TestStorageGetChannelRequiresOwner(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	owner := mustUser(t, storage, "romeo@example.net")
	reader := mustUser(t, storage, "juliet@example.net")

	channel, err := storage.AddChannel(ctx, owner, "news")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, channel, reader, "")
	require.NoError(t, err)

	_, err = storage.GetChannel(ctx, reader, "news")
	assert.ErrorIs(t, err, radiowave.ErrChannelNotFound)
}

func TestStorageGetChannelsFiltersByAffiliation(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	romeo := mustUser(t, storage, "romeo@example.net")
	juliet := mustUser(t, storage, "juliet@example.net")

	_, err := storage.AddChannel(ctx, romeo, "alpha")
	require.NoError(t, err)

	beta, err := storage.AddChannel(ctx, juliet, "beta")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, beta, romeo, radiowave.AffiliationMember)
	require.NoError(t, err)

	gamma, err := storage.AddChannel(ctx, juliet, "gamma")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, gamma, romeo, radiowave.AffiliationPublisher)
	require.NoError(t, err)

	delta, err := storage.AddChannel(ctx, juliet, "delta")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, delta, romeo, radiowave.AffiliationOutcast)
	require.NoError(t, err)

	cases := []struct {
		filter radiowave.ChannelFilter
		want   []string
	}{
		{radiowave.ChannelsOwned, []string{"alpha"}},
		{radiowave.ChannelsMember, []string{"beta"}},
		{radiowave.ChannelsPublisher, []string{"gamma"}},
		{radiowave.ChannelsAll, []string{"alpha", "beta", "gamma"}},
	}

	for _, tc := range cases {
		t.Run(tc.filter, func(t *testing.T) {
			channels, err := storage.GetChannels(ctx, romeo, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, channelNames(channels))
		})
	}
}

func TestStorageSubscribeRejectsDuplicate(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	owner := mustUser(t, storage, "romeo@example.net")

	channel, err := storage.AddChannel(ctx, owner, "news")
	require.NoError(t, err)

	_, err = storage.Subscribe(ctx, channel, owner, "")
	assert.ErrorIs(t, err, radiowave.ErrMembershipExists)
}

func TestStorageUpdateSubStateAndUnsubscribe(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	owner := mustUser(t, storage, "romeo@example.net")
	reader := mustUser(t, storage, "juliet@example.net")

	channel, err := storage.AddChannel(ctx, owner, "news")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, channel, reader, "")
	require.NoError(t, err)

	sub, err := storage.UpdateSubState(ctx, channel, reader, radiowave.SubStatePending)
	require.NoError(t, err)
	assert.Equal(t, radiowave.SubStatePending, sub.SubState)

	found, err := storage.FindChannel(ctx, "news")
	require.NoError(t, err)
	require.NotNil(t, found.Subscriber("juliet@example.net"))
	assert.Equal(t, radiowave.SubStatePending, found.Subscriber("juliet@example.net").SubState)

	require.NoError(t, storage.Unsubscribe(ctx, channel, reader))

	found, err = storage.FindChannel(ctx, "news")
	require.NoError(t, err)
	assert.Nil(t, found.Subscriber("juliet@example.net"))
}

func TestStorageDelChannelRemovesSubscriptions(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()
	owner := mustUser(t, storage, "romeo@example.net")
	reader := mustUser(t, storage, "juliet@example.net")

	channel, err := storage.AddChannel(ctx, owner, "news")
	require.NoError(t, err)
	_, err = storage.Subscribe(ctx, channel, reader, "")
	require.NoError(t, err)

	require.NoError(t, storage.DelChannel(ctx, &radiowave.Channel{Name: "news"}))

	_, err = storage.FindChannel(ctx, "news")
	assert.ErrorIs(t, err, radiowave.ErrChannelNotFound)

	_, err = storage.Repositories().ChannelSubs().FindTx(ctx, storage.DB(), channel.ID, reader.ID)
	assert.ErrorIs(t, err, radiowave.ErrMembershipNotFound)

	channels, err := storage.GetChannels(ctx, reader, radiowave.ChannelsAll)
	require.NoError(t, err)
	assert.Empty(t, channels)
}
