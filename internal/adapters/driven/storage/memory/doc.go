// Package memory provides in-memory implementations of driven ports:
// the live vector index and a config store for tests.
package memory
