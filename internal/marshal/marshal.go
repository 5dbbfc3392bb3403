// Package marshal converts between unconstrained JSON numbers and the
// statically-typed Wasm ABI, driven by the callee's declared signature
// (spec §4.6), grounded on the original Rust implementation's
// params_to_wasm (src/utils/wasm.rs), carried over type-for-type.
package marshal

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/georgecane/opencoin/internal/wasmtypes"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

// Number is the JSON-decoded numeric input for a single parameter: its
// encoding/json float64 value plus the literal text it was decoded from.
type Number struct {
	Float float64
	// Raw holds the literal JSON text for the number, used for the exact
	// I32/I64 parse and V128's textual big-integer parse. When Raw is empty,
	// I32/I64 fall back to Float and V128 conversion fails.
	Raw string
}

// ParamsToWasm converts values to WasmValue per sig, elementwise, with the
// tie-breaks from spec §4.6. Fails with *wasmerr.ArityMismatchError if the
// lengths differ, or *wasmerr.TypeMismatchError on the first value that
// cannot convert to its callee-declared type.
func ParamsToWasm(values []Number, sig []wasmtypes.ValueType) ([]wasmtypes.WasmValue, error) {
	if len(values) != len(sig) {
		return nil, &wasmerr.ArityMismatchError{Got: len(values), Want: len(sig)}
	}

	out := make([]wasmtypes.WasmValue, len(values))
	for i, v := range values {
		t := sig[i]
		wv, err := convert(v, t)
		if err != nil {
			return nil, &wasmerr.TypeMismatchError{Index: i, Want: wasmtypes.ValueTypeName(t), Value: v.Raw}
		}
		out[i] = wv
	}
	return out, nil
}

func convert(v Number, t wasmtypes.ValueType) (wasmtypes.WasmValue, error) {
	switch t {
	case wasmtypes.ValueTypeI32:
		i, ok := asI64(v)
		if !ok {
			return wasmtypes.WasmValue{}, fmt.Errorf("not an integer")
		}
		return wasmtypes.I32(int32(uint32(i))), nil
	case wasmtypes.ValueTypeI64:
		i, ok := asI64(v)
		if !ok {
			return wasmtypes.WasmValue{}, fmt.Errorf("not an integer")
		}
		return wasmtypes.I64(i), nil
	case wasmtypes.ValueTypeF32:
		return wasmtypes.F32(float32(v.Float)), nil
	case wasmtypes.ValueTypeF64:
		return wasmtypes.F64(v.Float), nil
	case wasmtypes.ValueTypeV128:
		lo, hi, ok := asU128(v.Raw)
		if !ok {
			return wasmtypes.WasmValue{}, fmt.Errorf("not a 128-bit unsigned integer")
		}
		return wasmtypes.V128(lo, hi), nil
	default:
		return wasmtypes.WasmValue{}, fmt.Errorf("unsupported value type %#x", t)
	}
}

// asI64 reports whether v represents an integral JSON number, returning its
// exact int64 value. It parses the literal Raw text first, the same way
// asU128 does for V128, since float64 cannot represent every int64 exactly
// (anything past +/-2^53 loses precision, and converting an out-of-range
// float64 to int64 is undefined behavior rather than a clean rejection).
// Only a Raw that isn't a bare base-10 integer (e.g. "1.5" or "1e3") falls
// back to the float-based integral check.
func asI64(v Number) (int64, bool) {
	if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
		return i, true
	}
	if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
		return 0, false
	}
	if v.Float != math.Trunc(v.Float) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	if v.Float < math.MinInt64 || v.Float >= math.MaxInt64 {
		return 0, false
	}
	return int64(v.Float), true
}

// asU128 parses raw as a base-10 unsigned 128-bit integer, split into low
// and high 64-bit halves.
func asU128(raw string) (lo, hi uint64, ok bool) {
	n, success := new(big.Int).SetString(raw, 10)
	if !success || n.Sign() < 0 {
		return 0, 0, false
	}
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	if n.Cmp(max) >= 0 {
		return 0, 0, false
	}
	mask64 := new(big.Int).SetUint64(math.MaxUint64)
	loBig := new(big.Int).And(n, mask64)
	hiBig := new(big.Int).Rsh(n, 64)
	return loBig.Uint64(), hiBig.Uint64(), true
}

// EncodeResult is the JSON-encodable tagged form of a single WasmValue,
// e.g. {"I32": 4}.
type EncodeResult map[string]interface{}

// EncodeResults converts a sequence of WasmValue to their tagged JSON form,
// preserving order.
func EncodeResults(values []wasmtypes.WasmValue) []EncodeResult {
	out := make([]EncodeResult, len(values))
	for i, v := range values {
		switch v.Type {
		case wasmtypes.ValueTypeI32:
			out[i] = EncodeResult{"I32": v.I32}
		case wasmtypes.ValueTypeI64:
			out[i] = EncodeResult{"I64": v.I64}
		case wasmtypes.ValueTypeF32:
			out[i] = EncodeResult{"F32": v.F32}
		case wasmtypes.ValueTypeF64:
			out[i] = EncodeResult{"F64": v.F64}
		case wasmtypes.ValueTypeV128:
			out[i] = EncodeResult{"V128": new(big.Int).Or(
				new(big.Int).SetUint64(v.V128[0]),
				new(big.Int).Lsh(new(big.Int).SetUint64(v.V128[1]), 64),
			).String()}
		}
	}
	return out
}
