// Package simple provides an in-memory PLAIN strategy for development and
// tests. Passwords are kept in clear text and compared by exact equality,
// so it must not be registered on a production server.
package simple
