package registry

import (
	"context"
	"testing"

	"github.com/georgecane/opencoin/internal/store/localstore"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := localstore.OpenEphemeral()
	if err != nil {
		t.Fatalf("open ephemeral store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestRegisterMissingDependencyRejected(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	err := r.Register(ctx, "linking", []byte{1}, []string{"utils"})
	if _, ok := err.(*wasmerr.MissingDependencyError); !ok {
		t.Fatalf("expected MissingDependencyError, got %T: %v", err, err)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	if err := r.Register(ctx, "utils", []byte{1}, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(ctx, "utils", []byte{2}, nil)
	if _, ok := err.(*wasmerr.AlreadyExistsError); !ok {
		t.Fatalf("expected AlreadyExistsError, got %T: %v", err, err)
	}
}

func TestLoadRecursiveMultiLevel(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	if err := r.Register(ctx, "a", []byte{0xa}, nil); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register(ctx, "b", []byte{0xb}, []string{"a"}); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := r.Register(ctx, "c", []byte{0xc}, []string{"a", "b"}); err != nil {
		t.Fatalf("register c: %v", err)
	}

	mod, err := r.LoadRecursive(ctx, "c")
	if err != nil {
		t.Fatalf("load recursive: %v", err)
	}
	if mod.Name != "c" {
		t.Fatalf("expected root c, got %s", mod.Name)
	}
	if len(mod.Dependencies) != 2 {
		t.Fatalf("expected 2 deps, got %d", len(mod.Dependencies))
	}
	bMod, ok := mod.Imports["b"]
	if !ok {
		t.Fatal("expected b in imports")
	}
	if _, ok := bMod.Imports["a"]; !ok {
		t.Fatal("expected a nested under b's imports")
	}
	if _, ok := mod.Imports["a"]; !ok {
		t.Fatal("expected a directly under c's imports")
	}
}

func TestLoadRecursiveMissing(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	_, err := r.LoadRecursive(ctx, "nope")
	if _, ok := err.(*wasmerr.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestLoadRecursiveCycleOnCorruptStore(t *testing.T) {
	ctx := context.Background()
	s, err := localstore.OpenEphemeral()
	if err != nil {
		t.Fatalf("open ephemeral store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Bypass Register's closed-dependency check to simulate a store that
	// was mutated out from under the registry (e.g. a shared DHT backend).
	if err := s.Put(ctx, "x", []byte{1}, []string{"y"}); err != nil {
		t.Fatalf("put x: %v", err)
	}
	if err := s.Put(ctx, "y", []byte{2}, []string{"x"}); err != nil {
		t.Fatalf("put y: %v", err)
	}

	r := New(s)
	_, err = r.LoadRecursive(ctx, "x")
	if _, ok := err.(*wasmerr.CycleError); !ok {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}
}
