// Package engine is the Linker/Executor (spec §4.7): it turns a module name
// or raw bytecode plus a set of host-module names into a live Wasm
// instance, recursively linked against its dependencies, and invokes a
// named export. Grounded on the teacher's two wazero call sites —
// pkg/serverless.Engine (compilation, module config, memory helpers) and
// pkg/contracts.ContractEngine (instantiate-then-call-export shape) —
// generalized from opencoin's fixed "handle" export to an arbitrary
// named export whose params are marshalled against its own declared signature.
package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/georgecane/opencoin/internal/marshal"
	"github.com/georgecane/opencoin/internal/registry"
	"github.com/georgecane/opencoin/internal/wasmerr"
	"github.com/georgecane/opencoin/internal/wasmtypes"
)

// Engine executes Wasm modules over wazero. Every call gets its own
// wazero.Runtime — so the instance tree a call creates is destroyed when
// the call returns (spec §3) without racing on module names against any
// other concurrent call linking against the same host module name.
type Engine struct {
	logger *zap.Logger
}

// New returns an Engine.
func New(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

func (e *Engine) newRuntime(ctx context.Context) wazero.Runtime {
	return wazero.NewRuntime(ctx)
}

// ExecuteAdhoc implements spec §4.7 ExecuteAdhoc.
func (e *Engine) ExecuteAdhoc(ctx context.Context, reg *registry.Registry, code []byte, fnName string, params []marshal.Number, hostModuleNames []string) ([]wasmtypes.WasmValue, error) {
	rt := e.newRuntime(ctx)
	defer rt.Close(ctx)

	seen := make(map[string]bool, len(hostModuleNames))
	for _, h := range hostModuleNames {
		if seen[h] {
			return nil, &wasmerr.DuplicateImportError{Name: h}
		}
		seen[h] = true

		loaded, err := reg.LoadRecursive(ctx, h)
		if err != nil {
			return nil, err
		}
		if _, err := e.instantiateTree(ctx, rt, loaded); err != nil {
			return nil, err
		}
	}

	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, &wasmerr.InstantiationFailedError{Cause: err}
	}
	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, &wasmerr.InstantiationFailedError{Cause: err}
	}

	return e.callExport(ctx, inst, fnName, params)
}

// ExecuteNamed implements spec §4.7 ExecuteNamed: same as ExecuteAdhoc with
// step 1 replaced by a single LoadRecursive(name) and step 2 skipped.
func (e *Engine) ExecuteNamed(ctx context.Context, reg *registry.Registry, name, fnName string, params []marshal.Number) ([]wasmtypes.WasmValue, error) {
	rt := e.newRuntime(ctx)
	defer rt.Close(ctx)

	loaded, err := reg.LoadRecursive(ctx, name)
	if err != nil {
		return nil, err
	}

	inst, err := e.instantiateTree(ctx, rt, loaded)
	if err != nil {
		return nil, err
	}

	return e.callExport(ctx, inst, fnName, params)
}

// instantiateTree instantiates mod's dependencies depth-first post-order
// (a dependency is always live before any dependant importing it), then
// instantiates mod itself under its own name so wazero's runtime-wide,
// name-keyed module namespace resolves the dependant's imports.
func (e *Engine) instantiateTree(ctx context.Context, rt wazero.Runtime, mod *registry.LoadedModule) (api.Module, error) {
	for _, depName := range mod.Dependencies {
		sub := mod.Imports[depName]
		if _, err := e.instantiateTree(ctx, rt, sub); err != nil {
			return nil, err
		}
	}

	compiled, err := rt.CompileModule(ctx, mod.Code)
	if err != nil {
		return nil, &wasmerr.InstantiationFailedError{Cause: fmt.Errorf("module %q: %w", mod.Name, err)}
	}
	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(mod.Name))
	if err != nil {
		return nil, &wasmerr.InstantiationFailedError{Cause: fmt.Errorf("module %q: %w", mod.Name, err)}
	}
	return inst, nil
}

// callExport looks up fnName, marshals params against its declared
// parameter types, invokes it, and decodes the results.
func (e *Engine) callExport(ctx context.Context, inst api.Module, fnName string, params []marshal.Number) ([]wasmtypes.WasmValue, error) {
	fn := inst.ExportedFunction(fnName)
	if fn == nil {
		return nil, &wasmerr.NotFoundError{Kind: "export", Name: fnName}
	}

	def := fn.Definition()
	marshalled, err := marshal.ParamsToWasm(params, def.ParamTypes())
	if err != nil {
		return nil, err
	}

	rawParams := make([]uint64, len(marshalled))
	for i, v := range marshalled {
		rawParams[i] = encodeValue(v)
	}

	rawResults, err := fn.Call(ctx, rawParams...)
	if err != nil {
		return nil, &wasmerr.ExecutionTrappedError{FunctionName: fnName, Cause: err}
	}

	resultTypes := def.ResultTypes()
	results := make([]wasmtypes.WasmValue, len(rawResults))
	for i, raw := range rawResults {
		var t wasmtypes.ValueType
		if i < len(resultTypes) {
			t = resultTypes[i]
		}
		results[i] = decodeValue(t, raw)
	}
	return results, nil
}

func encodeValue(v wasmtypes.WasmValue) uint64 {
	switch v.Type {
	case wasmtypes.ValueTypeI32:
		return api.EncodeI32(v.I32)
	case wasmtypes.ValueTypeI64:
		return api.EncodeI64(v.I64)
	case wasmtypes.ValueTypeF32:
		return api.EncodeF32(v.F32)
	case wasmtypes.ValueTypeF64:
		return api.EncodeF64(v.F64)
	case wasmtypes.ValueTypeV128:
		// wazero's public ABI has no V128 parameter slot; the low 64 bits
		// are the closest approximation reachable through Function.Call.
		return v.V128[0]
	default:
		return 0
	}
}

func decodeValue(t wasmtypes.ValueType, raw uint64) wasmtypes.WasmValue {
	switch t {
	case wasmtypes.ValueTypeI32:
		return wasmtypes.I32(int32(uint32(raw)))
	case wasmtypes.ValueTypeI64:
		return wasmtypes.I64(int64(raw))
	case wasmtypes.ValueTypeF32:
		return wasmtypes.F32(api.DecodeF32(raw))
	case wasmtypes.ValueTypeF64:
		return wasmtypes.F64(api.DecodeF64(raw))
	case wasmtypes.ValueTypeV128:
		return wasmtypes.V128(raw, 0)
	default:
		return wasmtypes.I64(int64(raw))
	}
}
