package roster

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	SubscriptionNone   = "none"
	SubscriptionTo     = "to"
	SubscriptionFrom   = "from"
	SubscriptionBoth   = "both"
	SubscriptionRemove = "remove"
)

// Item is the stored form of a roster entry. Subscription is assigned by
// the store and echoed back on output.
type Item struct {
	JID          string   `json:"jid"`
	Name         string   `json:"name,omitempty"`
	Groups       []string `json:"group"`
	Subscription string   `json:"subscription,omitempty"`
}

// Verify reports whether the item can be stored
func (i Item) Verify() error {
	if strings.TrimSpace(i.JID) == "" {
		return ErrInvalidItem
	}
	return nil
}

// ItemFromElement converts a wire <item/> into its stored form. The wire
// subscription attribute is not copied.
func ItemFromElement(el *etree.Element) (Item, error) {
	if el == nil {
		return Item{}, ErrInvalidItem
	}

	item := Item{
		JID:    strings.TrimSpace(el.SelectAttrValue("jid", "")),
		Name:   el.SelectAttrValue("name", ""),
		Groups: []string{},
	}
	for _, g := range el.SelectElements("group") {
		item.Groups = append(item.Groups, g.Text())
	}

	if err := item.Verify(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Element renders the item as a wire <item/>.
func (i Item) Element() *etree.Element {
	el := etree.NewElement("item")
	el.CreateAttr("jid", i.JID)
	if i.Name != "" {
		el.CreateAttr("name", i.Name)
	}
	if i.Subscription != "" {
		el.CreateAttr("subscription", i.Subscription)
	}
	for _, g := range i.Groups {
		el.CreateElement("group").SetText(g)
	}
	return el
}

// QueryElement renders items inside a roster <query/>.
func QueryElement(items []Item) *etree.Element {
	query := etree.NewElement("query")
	query.CreateAttr("xmlns", Namespace)
	for _, item := range items {
		query.AddChild(item.Element())
	}
	return query
}
