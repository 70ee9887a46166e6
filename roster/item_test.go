package roster_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/prasad83/radiowave/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseElement(t *testing.T, xml string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestItemRoundTrip(t *testing.T) {
	wire := parseElement(t, `<item jid="a@b" name="A"><group>friends</group></item>`)

	item, err := roster.ItemFromElement(wire)
	require.NoError(t, err)
	assert.Equal(t, roster.Item{JID: "a@b", Name: "A", Groups: []string{"friends"}}, item)

	item.Subscription = roster.SubscriptionBoth
	back := item.Element()
	assert.Equal(t, "a@b", back.SelectAttrValue("jid", ""))
	assert.Equal(t, "A", back.SelectAttrValue("name", ""))
	assert.Equal(t, "both", back.SelectAttrValue("subscription", ""))

	again, err := roster.ItemFromElement(back)
	require.NoError(t, err)
	assert.Equal(t, item.JID, again.JID)
	assert.Equal(t, item.Name, again.Name)
	assert.Equal(t, item.Groups, again.Groups)
}

func TestItemFromElementKeepsGroupOrder(t *testing.T) {
	wire := parseElement(t, `<item jid="nurse@example.com"><group>servants</group><group>family</group></item>`)

	item, err := roster.ItemFromElement(wire)
	require.NoError(t, err)
	assert.Equal(t, []string{"servants", "family"}, item.Groups)
	assert.Empty(t, item.Name)

	back := item.Element()
	groups := back.SelectElements("group")
	require.Len(t, groups, 2)
	assert.Equal(t, "servants", groups[0].Text())
	assert.Equal(t, "family", groups[1].Text())
	assert.Nil(t, back.SelectAttr("name"))
}

func TestItemFromElementRequiresJID(t *testing.T) {
	_, err := roster.ItemFromElement(parseElement(t, `<item name="A"/>`))
	assert.ErrorIs(t, err, roster.ErrInvalidItem)

	_, err = roster.ItemFromElement(parseElement(t, `<item jid="  "/>`))
	assert.ErrorIs(t, err, roster.ErrInvalidItem)

	_, err = roster.ItemFromElement(nil)
	assert.ErrorIs(t, err, roster.ErrInvalidItem)
}

func TestItemFromElementIgnoresWireSubscription(t *testing.T) {
	item, err := roster.ItemFromElement(parseElement(t, `<item jid="a@b" subscription="both"/>`))
	require.NoError(t, err)
	assert.Empty(t, item.Subscription)
	assert.Empty(t, item.Groups)
}

func TestQueryElement(t *testing.T) {
	query := roster.QueryElement([]roster.Item{
		{JID: "a@b", Subscription: roster.SubscriptionNone},
		{JID: "c@d", Name: "C", Groups: []string{"work"}},
	})

	assert.Equal(t, "query", query.Tag)
	assert.Equal(t, roster.Namespace, query.NamespaceURI())
	items := query.SelectElements("item")
	require.Len(t, items, 2)
	assert.Equal(t, "a@b", items[0].SelectAttrValue("jid", ""))
	assert.Equal(t, "none", items[0].SelectAttrValue("subscription", ""))
	assert.Equal(t, "work", items[1].SelectElement("group").Text())
}
