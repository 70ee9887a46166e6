package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/prasad83/radiowave/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context, owner string) ([]roster.Item, error) {
	args := m.Called(ctx, owner)
	items, _ := args.Get(0).([]roster.Item)
	return items, args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, owner, jid string) (*roster.Item, error) {
	args := m.Called(ctx, owner, jid)
	item, _ := args.Get(0).(*roster.Item)
	return item, args.Error(1)
}

func (m *MockStore) Add(ctx context.Context, owner string, item roster.Item) error {
	return m.Called(ctx, owner, item).Error(0)
}

func (m *MockStore) Update(ctx context.Context, owner string, item roster.Item) error {
	return m.Called(ctx, owner, item).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, owner, jid string) error {
	return m.Called(ctx, owner, jid).Error(0)
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

type outbox struct {
	sent []*etree.Element
}

func (o *outbox) send(_ context.Context, stanza *etree.Element) error {
	o.sent = append(o.sent, stanza)
	return nil
}

func (o *outbox) only(t *testing.T) *etree.Element {
	t.Helper()
	require.Len(t, o.sent, 1)
	return o.sent[0]
}

func newHandler(store roster.Store) *roster.Handler {
	return roster.NewHandler(store).WithLogger(quietLogger{})
}

func assertReply(t *testing.T, reply *etree.Element, typ string) {
	t.Helper()
	assert.Equal(t, "iq", reply.Tag)
	assert.Equal(t, "example.com", reply.SelectAttrValue("from", ""))
	assert.Equal(t, "juliet@example.com/balcony", reply.SelectAttrValue("to", ""))
	assert.Equal(t, "roster_1", reply.SelectAttrValue("id", ""))
	assert.Equal(t, typ, reply.SelectAttrValue("type", ""))
}

func errorCondition(t *testing.T, reply *etree.Element) (string, string) {
	t.Helper()
	errEl := reply.SelectElement("error")
	require.NotNil(t, errEl)
	children := errEl.ChildElements()
	require.Len(t, children, 1)
	assert.Equal(t, roster.NamespaceStanzas, children[0].NamespaceURI())
	return errEl.SelectAttrValue("type", ""), children[0].Tag
}

func TestHandlerMatch(t *testing.T) {
	h := newHandler(&MockStore{})

	cases := []struct {
		name string
		xml  string
		want bool
	}{
		{"get", `<iq type="get" id="1"><query xmlns="jabber:iq:roster"/></iq>`, true},
		{"set", `<iq type="set" id="1"><query xmlns="jabber:iq:roster"><item jid="a@b"/></query></iq>`, true},
		{"result", `<iq type="result" id="1"><query xmlns="jabber:iq:roster"/></iq>`, false},
		{"other namespace", `<iq type="get" id="1"><query xmlns="jabber:iq:version"/></iq>`, false},
		{"no query", `<iq type="get" id="1"><ping xmlns="urn:xmpp:ping"/></iq>`, false},
		{"message", `<message type="chat"><query xmlns="jabber:iq:roster"/></message>`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Match(parseElement(t, tc.xml)))
		})
	}
	assert.False(t, h.Match(nil))
}

func TestHandlerGetRepliesWithRoster(t *testing.T) {
	store := &MockStore{}
	store.On("List", mock.Anything, "juliet@example.com").Return([]roster.Item{
		{JID: "romeo@example.net", Name: "Romeo", Groups: []string{"Friends"}, Subscription: "both"},
		{JID: "nurse@example.com", Subscription: "none"},
	}, nil).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="get" id="roster_1"><query xmlns="jabber:iq:roster"/></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	reply := out.only(t)
	assertReply(t, reply, "result")
	query := reply.SelectElement("query")
	require.NotNil(t, query)
	assert.Equal(t, roster.Namespace, query.NamespaceURI())

	items := query.SelectElements("item")
	require.Len(t, items, 2)
	assert.Equal(t, "romeo@example.net", items[0].SelectAttrValue("jid", ""))
	assert.Equal(t, "Friends", items[0].SelectElement("group").Text())
	assert.Equal(t, "none", items[1].SelectAttrValue("subscription", ""))
	store.AssertExpectations(t)
}

func TestHandlerSetAddsMissingItem(t *testing.T) {
	store := &MockStore{}
	item := roster.Item{JID: "nurse@example.com", Name: "Nurse", Groups: []string{"Servants"}}
	store.On("Get", mock.Anything, "juliet@example.com", "nurse@example.com").Return(nil, roster.ErrItemNotFound).Once()
	store.On("Add", mock.Anything, "juliet@example.com", item).Return(nil).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="set" id="roster_1">
		<query xmlns="jabber:iq:roster"><item jid="nurse@example.com" name="Nurse"><group>Servants</group></item></query>
	</iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	reply := out.only(t)
	assertReply(t, reply, "result")
	assert.Empty(t, reply.ChildElements())
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerSetUpdatesExistingItem(t *testing.T) {
	store := &MockStore{}
	item := roster.Item{JID: "nurse@example.com", Name: "Angelica", Groups: []string{}}
	store.On("Get", mock.Anything, "juliet@example.com", "nurse@example.com").
		Return(&roster.Item{JID: "nurse@example.com", Name: "Nurse"}, nil).Once()
	store.On("Update", mock.Anything, "juliet@example.com", item).Return(nil).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="set" id="roster_1"><query xmlns="jabber:iq:roster"><item jid="nurse@example.com" name="Angelica"/></query></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	assertReply(t, out.only(t), "result")
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerSetRemovesItem(t *testing.T) {
	store := &MockStore{}
	store.On("Delete", mock.Anything, "juliet@example.com", "nurse@example.com").Return(nil).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="set" id="roster_1"><query xmlns="jabber:iq:roster"><item jid="nurse@example.com" subscription="remove"/></query></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	assertReply(t, out.only(t), "result")
	store.AssertExpectations(t)
}

func TestHandlerSetWithoutJIDRepliesBadRequest(t *testing.T) {
	store := &MockStore{}

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="set" id="roster_1"><query xmlns="jabber:iq:roster"><item name="Nobody"/></query></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	reply := out.only(t)
	assertReply(t, reply, "error")
	typ, condition := errorCondition(t, reply)
	assert.Equal(t, "modify", typ)
	assert.Equal(t, "bad-request", condition)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerRemoveMissingItemRepliesItemNotFound(t *testing.T) {
	store := &MockStore{}
	store.On("Delete", mock.Anything, "juliet@example.com", "nurse@example.com").Return(roster.ErrItemNotFound).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="set" id="roster_1"><query xmlns="jabber:iq:roster"><item jid="nurse@example.com" subscription="remove"/></query></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	typ, condition := errorCondition(t, out.only(t))
	assert.Equal(t, "cancel", typ)
	assert.Equal(t, "item-not-found", condition)
}

func TestHandlerStoreFailureRepliesInternalError(t *testing.T) {
	store := &MockStore{}
	store.On("List", mock.Anything, "juliet@example.com").Return(nil, errors.New("connection reset")).Once()

	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" to="example.com" type="get" id="roster_1"><query xmlns="jabber:iq:roster"/></iq>`)
	require.NoError(t, newHandler(store).Handle(context.Background(), stanza, out.send))

	reply := out.only(t)
	assertReply(t, reply, "error")
	typ, condition := errorCondition(t, reply)
	assert.Equal(t, "cancel", typ)
	assert.Equal(t, "internal-server-error", condition)
}

func TestHandlerUnrecognizedStanzaReturnsError(t *testing.T) {
	out := &outbox{}
	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" type="result" id="roster_1"><query xmlns="jabber:iq:roster"/></iq>`)

	err := newHandler(&MockStore{}).Handle(context.Background(), stanza, out.send)
	assert.ErrorIs(t, err, roster.ErrUnrecognizedRequest)
	assert.Empty(t, out.sent)
}

func TestHandlerReturnsSendError(t *testing.T) {
	store := &MockStore{}
	store.On("List", mock.Anything, "juliet@example.com").Return([]roster.Item{}, nil).Once()
	errSend := errors.New("stream closed")

	stanza := parseElement(t, `<iq from="juliet@example.com/balcony" type="get" id="roster_1"><query xmlns="jabber:iq:roster"/></iq>`)
	err := newHandler(store).Handle(context.Background(), stanza, func(context.Context, *etree.Element) error {
		return errSend
	})
	assert.ErrorIs(t, err, errSend)
}
