// Package localstore implements store.Store over an embedded pebble
// key-value engine, mirroring the teacher's pkg/state.Store: a directory
// rooted durable mode, or an in-memory ephemeral mode for -m / test runs.
// Pebble has no native CAS, so unique insertion is enforced by a
// process-local mutex serializing the Get-then-Set check — observably
// atomic because every local Put for this store instance funnels through
// the same critical section.
package localstore

import (
	"context"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/georgecane/opencoin/internal/codec"
	"github.com/georgecane/opencoin/internal/store"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

// Store is a pebble-backed store.Store implementation.
type Store struct {
	db *pebble.DB
	mu sync.Mutex // serializes put's CAS check
}

// Open opens or creates a durable pebble store rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, &wasmerr.TransportError{Cause: err}
	}
	return &Store{db: db}, nil
}

// OpenEphemeral opens an in-memory pebble store destroyed on Close.
func OpenEphemeral() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, &wasmerr.TransportError{Cause: err}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements store.Store.
func (s *Store) Load(_ context.Context, name string) (store.Record, error) {
	val, closer, err := s.db.Get([]byte(name))
	if err != nil {
		if err == pebble.ErrNotFound {
			return store.Record{}, &wasmerr.NotFoundError{Kind: "module", Name: name}
		}
		return store.Record{}, &wasmerr.TransportError{Cause: err}
	}
	defer closer.Close()

	rec, err := codec.Decode(val)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{Code: rec.Code, Dependencies: rec.Dependencies}, nil
}

// Contains implements store.Store.
func (s *Store) Contains(_ context.Context, name string) (bool, error) {
	_, closer, err := s.db.Get([]byte(name))
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, &wasmerr.TransportError{Cause: err}
	}
	closer.Close()
	return true, nil
}

// Put implements store.Store with CAS(name, expected=absent, new=encoded).
func (s *Store) Put(_ context.Context, name string, code []byte, deps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(name)
	if _, closer, err := s.db.Get(key); err == nil {
		closer.Close()
		return &wasmerr.AlreadyExistsError{Name: name}
	} else if err != pebble.ErrNotFound {
		return &wasmerr.TransportError{Cause: err}
	}

	encoded := codec.Encode(code, deps)
	if err := s.db.Set(key, encoded, pebble.Sync); err != nil {
		return &wasmerr.TransportError{Cause: err}
	}
	return nil
}
