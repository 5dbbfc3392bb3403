// Package wasmtypes defines the value types shared by the marshaller,
// linker, and HTTP surface: WasmValue, FunctionSignature, and ModuleName.
package wasmtypes

import "fmt"

// ValueType is a Wasm value type, encoded with the same byte values the
// binary format (and wazero's api.ValueType) use: i32=0x7f, i64=0x7e,
// f32=0x7d, f64=0x7c, v128=0x7b.
type ValueType = byte

const (
	ValueTypeI32  ValueType = 0x7f
	ValueTypeI64  ValueType = 0x7e
	ValueTypeF32  ValueType = 0x7d
	ValueTypeF64  ValueType = 0x7c
	ValueTypeV128 ValueType = 0x7b
)

// ValueTypeName returns a human-readable name for a ValueType, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "I32"
	case ValueTypeI64:
		return "I64"
	case ValueTypeF32:
		return "F32"
	case ValueTypeF64:
		return "F64"
	case ValueTypeV128:
		return "V128"
	default:
		return "unknown"
	}
}

// WasmValue is a tagged Wasm value: exactly one of I32/I64/F32/F64/V128 is
// populated, as indicated by Type.
type WasmValue struct {
	Type ValueType
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	V128 [2]uint64 // low, high 64 bits of the 128-bit lane
}

func I32(v int32) WasmValue { return WasmValue{Type: ValueTypeI32, I32: v} }
func I64(v int64) WasmValue { return WasmValue{Type: ValueTypeI64, I64: v} }
func F32(v float32) WasmValue { return WasmValue{Type: ValueTypeF32, F32: v} }
func F64(v float64) WasmValue { return WasmValue{Type: ValueTypeF64, F64: v} }
func V128(lo, hi uint64) WasmValue { return WasmValue{Type: ValueTypeV128, V128: [2]uint64{lo, hi}} }

func (v WasmValue) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("I32(%d)", v.I32)
	case ValueTypeI64:
		return fmt.Sprintf("I64(%d)", v.I64)
	case ValueTypeF32:
		return fmt.Sprintf("F32(%v)", v.F32)
	case ValueTypeF64:
		return fmt.Sprintf("F64(%v)", v.F64)
	case ValueTypeV128:
		return fmt.Sprintf("V128(%d,%d)", v.V128[0], v.V128[1])
	default:
		return "invalid"
	}
}

// FunctionSignature is the ordered parameter (and result) type list reported
// by the engine for a given export.
type FunctionSignature struct {
	Params  []ValueType
	Results []ValueType
}

// ModuleName is the store key: a short, printable, UTF-8 string.
type ModuleName = string
