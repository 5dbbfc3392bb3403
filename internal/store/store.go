// Package store defines the capability contract every backend (local,
// DHT) must satisfy. Higher layers (registry, linker) depend only on this
// interface, never on a concrete backend — the same "polymorphic store"
// shape the teacher uses for its pluggable consensus/state backends.
package store

import "context"

// Store is the module record store contract (spec §4.2).
type Store interface {
	// Load fetches and decodes the record for name. Returns a
	// *wasmerr.NotFoundError, *wasmerr.TransportError, or *wasmerr.CodecError
	// on failure.
	Load(ctx context.Context, name string) (Record, error)

	// Contains reports whether name exists. Returns a *wasmerr.TransportError
	// on failure (never NotFound — absence is a false result, not an error).
	Contains(ctx context.Context, name string) (bool, error)

	// Put registers name atomically: two concurrent Puts for the same name
	// result in at most one success. Returns a *wasmerr.AlreadyExistsError,
	// *wasmerr.TransportError, or *wasmerr.CodecError on failure.
	Put(ctx context.Context, name string, code []byte, deps []string) error
}

// Record is a decoded module record (code and dependency names), returned by Load.
type Record struct {
	Code         []byte
	Dependencies []string
}
