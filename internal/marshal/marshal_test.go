package marshal

import (
	"errors"
	"math"
	"testing"

	"github.com/georgecane/opencoin/internal/wasmerr"
	"github.com/georgecane/opencoin/internal/wasmtypes"
)

func num(f float64, raw string) Number { return Number{Float: f, Raw: raw} }

func TestParamsToWasmArityMismatch(t *testing.T) {
	_, err := ParamsToWasm([]Number{num(1, "1")}, []wasmtypes.ValueType{wasmtypes.ValueTypeI32, wasmtypes.ValueTypeI32})
	if err == nil {
		t.Fatal("expected arity mismatch error")
	}
	var amErr *wasmerr.ArityMismatchError
	if !errors.As(err, &amErr) {
		t.Fatalf("expected *wasmerr.ArityMismatchError, got %T: %v", err, err)
	}
	if amErr.Got != 1 || amErr.Want != 2 {
		t.Fatalf("got %d want %d, expected 1/2", amErr.Got, amErr.Want)
	}
}

func TestParamsToWasmI32(t *testing.T) {
	values, err := ParamsToWasm([]Number{num(2, "2")}, []wasmtypes.ValueType{wasmtypes.ValueTypeI32})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if values[0].Type != wasmtypes.ValueTypeI32 || values[0].I32 != 2 {
		t.Fatalf("unexpected value: %+v", values[0])
	}
}

func TestParamsToWasmI32NegativeTruncation(t *testing.T) {
	values, err := ParamsToWasm([]Number{num(-1, "-1")}, []wasmtypes.ValueType{wasmtypes.ValueTypeI32})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if values[0].I32 != -1 {
		t.Fatalf("expected -1, got %d", values[0].I32)
	}
}

func TestParamsToWasmNonIntegralRejected(t *testing.T) {
	_, err := ParamsToWasm([]Number{num(1.5, "1.5")}, []wasmtypes.ValueType{wasmtypes.ValueTypeI32})
	if err == nil {
		t.Fatal("expected type mismatch for non-integral i32 input")
	}
	if _, ok := err.(*wasmerr.TypeMismatchError); !ok {
		t.Fatalf("expected *wasmerr.TypeMismatchError, got %T", err)
	}
}

func TestParamsToWasmI64ExactBeyondFloat64Range(t *testing.T) {
	values, err := ParamsToWasm([]Number{num(9223372036854775807.0, "9223372036854775807")}, []wasmtypes.ValueType{wasmtypes.ValueTypeI64})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if values[0].I64 != math.MaxInt64 {
		t.Fatalf("expected exact MaxInt64, got %d", values[0].I64)
	}
}

func TestParamsToWasmF64(t *testing.T) {
	values, err := ParamsToWasm([]Number{num(1.5, "1.5")}, []wasmtypes.ValueType{wasmtypes.ValueTypeF64})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if values[0].F64 != 1.5 {
		t.Fatalf("expected 1.5, got %v", values[0].F64)
	}
}

func TestParamsToWasmV128(t *testing.T) {
	values, err := ParamsToWasm([]Number{num(0, "340282366920938463463374607431768211455")}, []wasmtypes.ValueType{wasmtypes.ValueTypeV128})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if values[0].V128[0] != ^uint64(0) || values[0].V128[1] != ^uint64(0) {
		t.Fatalf("expected max u128, got %+v", values[0].V128)
	}
}

func TestParamsToWasmV128OutOfRange(t *testing.T) {
	_, err := ParamsToWasm([]Number{num(0, "340282366920938463463374607431768211456")}, []wasmtypes.ValueType{wasmtypes.ValueTypeV128})
	if err == nil {
		t.Fatal("expected type mismatch for out-of-range u128")
	}
}

func TestEncodeResults(t *testing.T) {
	results := EncodeResults([]wasmtypes.WasmValue{
		wasmtypes.I32(4),
		wasmtypes.F64(1.5),
	})
	if results[0]["I32"] != int32(4) {
		t.Fatalf("unexpected I32 encode: %+v", results[0])
	}
	if results[1]["F64"] != 1.5 {
		t.Fatalf("unexpected F64 encode: %+v", results[1])
	}
}
