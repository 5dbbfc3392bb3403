// Package codec implements the canonical on-the-wire and on-disk
// representation of a stored module: its Wasm bytecode and its ordered
// list of dependency module names. Encoding follows the same deterministic
// protobuf wire approach the teacher uses for its own block/transaction
// records (field 1 = code, field 2 = repeated dependency name), which keeps
// the round-trip law exact without pulling in an ungrounded CBOR library.
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/georgecane/opencoin/internal/wasmerr"
)

// Record is the decoded (code, dependencies) tuple for a stored module.
type Record struct {
	Code         []byte
	Dependencies []string
}

// Encode serializes a Record deterministically. Infallible except for
// out-of-memory, per the codec contract.
func Encode(code []byte, deps []string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, code)
	for _, d := range deps {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(d))
	}
	return b
}

// Decode parses a Record from its encoded form. Fails with a *wasmerr.CodecError
// on any structural mismatch.
func Decode(b []byte) (Record, error) {
	var rec Record
	var sawCode bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("invalid tag: %w", protowire.ParseError(n))}
		}
		b = b[n:]
		switch num {
		case 1:
			if typ != protowire.BytesType {
				return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("field 1 (code): unexpected wire type %v", typ)}
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("field 1 (code): %w", protowire.ParseError(n))}
			}
			rec.Code = append([]byte(nil), v...)
			sawCode = true
			b = b[n:]
		case 2:
			if typ != protowire.BytesType {
				return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("field 2 (dependency): unexpected wire type %v", typ)}
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("field 2 (dependency): %w", protowire.ParseError(n))}
			}
			rec.Dependencies = append(rec.Dependencies, string(v))
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Record{}, &wasmerr.CodecError{Cause: fmt.Errorf("unknown field %d: %w", num, protowire.ParseError(n))}
			}
			b = b[n:]
		}
	}
	if !sawCode {
		rec.Code = []byte{}
	}
	return rec, nil
}
