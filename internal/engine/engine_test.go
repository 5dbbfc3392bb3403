package engine

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/georgecane/opencoin/internal/marshal"
	"github.com/georgecane/opencoin/internal/registry"
	"github.com/georgecane/opencoin/internal/store/localstore"
	"github.com/georgecane/opencoin/internal/wasmerr"
	"github.com/georgecane/opencoin/internal/wasmfixtures"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	s, err := localstore.OpenEphemeral()
	if err != nil {
		t.Fatalf("open ephemeral store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return registry.New(s)
}

func num(f float64) marshal.Number { return marshal.Number{Float: f} }

// Scenario 1: ad-hoc execute with no imports.
func TestExecuteAdhocNoImports(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	results, err := e.ExecuteAdhoc(ctx, reg, wasmfixtures.Utils, "double", []marshal.Number{num(2)}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 1 || results[0].I32 != 4 {
		t.Fatalf("expected [4], got %+v", results)
	}
}

// Scenario 2: register then execute named.
func TestExecuteNamedAfterRegister(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	if err := reg.Register(ctx, "utils", wasmfixtures.Utils, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	results, err := e.ExecuteNamed(ctx, reg, "utils", "double", []marshal.Number{num(3)})
	if err != nil {
		t.Fatalf("execute named: %v", err)
	}
	if len(results) != 1 || results[0].I32 != 6 {
		t.Fatalf("expected [6], got %+v", results)
	}
}

// Scenario 3: ad-hoc execute linked against a registered host module.
func TestExecuteAdhocWithHostModule(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	if err := reg.Register(ctx, "utils", wasmfixtures.Utils, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	results, err := e.ExecuteAdhoc(ctx, reg, wasmfixtures.Linking, "double_twice", []marshal.Number{num(2)}, []string{"utils"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 1 || results[0].I32 != 8 {
		t.Fatalf("expected [8], got %+v", results)
	}
}

// Scenario 4: duplicate registration conflict.
func TestRegisterDuplicateConflict(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	if err := reg.Register(ctx, "utils", wasmfixtures.Utils, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := reg.Register(ctx, "utils", wasmfixtures.Utils, nil)
	if !wasmerr.IsConflict(err) {
		t.Fatalf("expected conflict error, got %T: %v", err, err)
	}
}

// Scenario 5: dangling dependency rejected, store left untouched.
func TestRegisterDanglingDependencyRejected(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	err := reg.Register(ctx, "linking", wasmfixtures.Linking, []string{"utils"})
	if !wasmerr.IsUnmetPrecondition(err) {
		t.Fatalf("expected unmet precondition, got %T: %v", err, err)
	}

	ok, err := reg.Store.Contains(ctx, "linking")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if ok {
		t.Fatal("expected linking to remain unregistered after dangling dependency rejection")
	}
}

// Scenario 6: arity mismatch surfaces as an error, not a panic or trap.
func TestExecuteArityMismatch(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	_, err := e.ExecuteAdhoc(ctx, reg, wasmfixtures.Utils, "double", []marshal.Number{num(1), num(2)}, nil)
	if !wasmerr.IsBadRequest(err) {
		t.Fatalf("expected bad request (arity mismatch), got %T: %v", err, err)
	}
}

func TestExecuteNamedMissingModule(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	_, err := e.ExecuteNamed(ctx, reg, "missing", "double", []marshal.Number{num(1)})
	if !wasmerr.IsNotFound(err) {
		t.Fatalf("expected not found, got %T: %v", err, err)
	}
}

func TestExecuteAdhocExportNotFound(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	e := New(zap.NewNop())

	_, err := e.ExecuteAdhoc(ctx, reg, wasmfixtures.Utils, "nonexistent", []marshal.Number{num(1)}, nil)
	if !wasmerr.IsNotFound(err) {
		t.Fatalf("expected not found, got %T: %v", err, err)
	}
}
