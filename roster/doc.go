// Package roster answers jabber:iq:roster get and set requests.
//
// Handler inspects an iq stanza, translates its items to the stored Item
// form and calls a Store keyed by the requester's bare jid. Every request
// it accepts gets exactly one reply: a result iq, or an error iq whose
// condition is derived from the failure category.
package roster
