// Package oauth2 provides the X-OAUTH2 strategy. The bearer token is
// verified by POSTing it to an introspection endpoint. The endpoint's
// JSON response is matched against the username derived from the jid.
package oauth2
