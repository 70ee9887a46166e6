package roster

import (
	"context"

	"github.com/beevik/etree"
	goerrors "github.com/goliatone/go-errors"
	"github.com/prasad83/radiowave"
)

const (
	Namespace        = "jabber:iq:roster"
	NamespaceStanzas = "urn:ietf:params:xml:ns:xmpp-stanzas"
)

// SendFunc delivers a reply stanza to the transport.
type SendFunc func(ctx context.Context, stanza *etree.Element) error

// Handler serves roster get and set requests against a Store.
type Handler struct {
	store  Store
	logger radiowave.Logger
}

// NewHandler returns a handler backed by store.
func NewHandler(store Store) *Handler {
	return &Handler{
		store:  store,
		logger: radiowave.DefaultLogger(),
	}
}

// WithLogger overrides the logger.
func (h *Handler) WithLogger(logger radiowave.Logger) *Handler {
	if logger == nil {
		logger = radiowave.DefaultLogger()
	}
	h.logger = logger
	return h
}

func (h *Handler) Name() string {
	return "RFC 3921: Roster"
}

// Match reports whether stanza is an iq get or set carrying a roster query.
//
//	<iq from='juliet@example.com/balcony' type='get' id='roster_1'>
//	  <query xmlns='jabber:iq:roster'/>
//	</iq>
func (h *Handler) Match(stanza *etree.Element) bool {
	if stanza == nil || stanza.Tag != "iq" {
		return false
	}
	switch stanza.SelectAttrValue("type", "") {
	case "get", "set":
	default:
		return false
	}
	return rosterQuery(stanza) != nil
}

// Handle answers a matched stanza through send. Store and validation
// failures are turned into an error reply. Only stanzas that Match rejects,
// and failures of send itself, are returned.
func (h *Handler) Handle(ctx context.Context, stanza *etree.Element, send SendFunc) error {
	if !h.Match(stanza) {
		return ErrUnrecognizedRequest
	}

	owner, err := radiowave.BareJID(stanza.SelectAttrValue("from", ""))
	if err != nil {
		return h.replyError(ctx, stanza, send, radiowave.ErrMissingJID)
	}

	if stanza.SelectAttrValue("type", "") == "get" {
		return h.handleGet(ctx, stanza, owner, send)
	}
	return h.handleSet(ctx, stanza, owner, send)
}

func (h *Handler) handleGet(ctx context.Context, stanza *etree.Element, owner string, send SendFunc) error {
	items, err := h.store.List(ctx, owner)
	if err != nil {
		return h.replyError(ctx, stanza, send, err)
	}

	reply := newReply(stanza, "result")
	reply.AddChild(QueryElement(items))

	h.logger.Debug("send roster", "to", stanza.SelectAttrValue("from", ""), "items", len(items))
	return send(ctx, reply)
}

func (h *Handler) handleSet(ctx context.Context, stanza *etree.Element, owner string, send SendFunc) error {
	elements := rosterQuery(stanza).SelectElements("item")
	if len(elements) == 0 {
		return h.replyError(ctx, stanza, send, ErrInvalidItem)
	}

	for _, el := range elements {
		item, err := ItemFromElement(el)
		if err != nil {
			return h.replyError(ctx, stanza, send, err)
		}

		if el.SelectAttrValue("subscription", "") == SubscriptionRemove {
			err = h.store.Delete(ctx, owner, item.JID)
		} else {
			err = h.upsert(ctx, owner, item)
		}
		if err != nil {
			return h.replyError(ctx, stanza, send, err)
		}
	}

	h.logger.Debug("send roster response", "to", stanza.SelectAttrValue("from", ""))
	return send(ctx, newReply(stanza, "result"))
}

func (h *Handler) upsert(ctx context.Context, owner string, item Item) error {
	_, err := h.store.Get(ctx, owner, item.JID)
	switch {
	case err == nil:
		return h.store.Update(ctx, owner, item)
	case radiowave.IsNotFound(err):
		return h.store.Add(ctx, owner, item)
	default:
		return err
	}
}

func (h *Handler) replyError(ctx context.Context, stanza *etree.Element, send SendFunc, cause error) error {
	h.logger.Error("roster request failed",
		"from", stanza.SelectAttrValue("from", ""),
		"id", stanza.SelectAttrValue("id", ""),
		"error", cause,
	)
	reply := newReply(stanza, "error")
	reply.AddChild(ErrorElement(cause))
	return send(ctx, reply)
}

// ErrorElement maps err to a stanza <error/> child.
func ErrorElement(err error) *etree.Element {
	typ, condition := "cancel", "internal-server-error"
	switch {
	case radiowave.IsNotFound(err):
		condition = "item-not-found"
	case radiowave.IsValidation(err), goerrors.IsCategory(err, goerrors.CategoryBadInput):
		typ, condition = "modify", "bad-request"
	}

	el := etree.NewElement("error")
	el.CreateAttr("type", typ)
	el.CreateElement(condition).CreateAttr("xmlns", NamespaceStanzas)
	return el
}

func newReply(stanza *etree.Element, typ string) *etree.Element {
	reply := etree.NewElement("iq")
	if to := stanza.SelectAttrValue("to", ""); to != "" {
		reply.CreateAttr("from", to)
	}
	if from := stanza.SelectAttrValue("from", ""); from != "" {
		reply.CreateAttr("to", from)
	}
	reply.CreateAttr("id", stanza.SelectAttrValue("id", ""))
	reply.CreateAttr("type", typ)
	return reply
}

func rosterQuery(stanza *etree.Element) *etree.Element {
	for _, child := range stanza.SelectElements("query") {
		if child.NamespaceURI() == Namespace {
			return child
		}
	}
	return nil
}
