// Package memory provides in-memory implementations of the driven store
// ports. They are mutex-protected and intended for tests and for the
// "memory" storage driver.
package memory
