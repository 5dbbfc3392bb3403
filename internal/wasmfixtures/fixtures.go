// Package wasmfixtures holds the two hand-assembled Wasm binaries used
// across the test suite, matching the original implementation's end-to-end
// scenario fixtures (spec §8): a module exporting double(i32) -> 2x, and a
// module importing it to export double_twice(i32) -> 4x. No Wasm toolchain
// is available in this environment, so the binaries are assembled directly
// from the module-encoding byte layout (magic, version, type/import/
// function/export/code sections) instead of compiled from source text.
package wasmfixtures

// Utils is a Wasm module exporting a single function:
//
//	double(i32) -> i32 { return x * 2 }
var Utils = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f, // type section: (i32) -> (i32)
	0x03, 0x02, 0x01, 0x00, // function section: func 0 uses type 0
	0x07, 0x0a, 0x01, 0x06, 0x64, 0x6f, 0x75, 0x62, 0x6c, 0x65, 0x00, 0x00, // export "double" func 0
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x41, 0x02, 0x6c, 0x0b, // code: local.get 0; i32.const 2; i32.mul; end
}

// Linking is a Wasm module that imports utils.double and exports:
//
//	double_twice(i32) -> i32 { return utils.double(utils.double(x)) }
//
// computing 4x: push x, call double (stack: 2x), call double again on the
// result (stack: 4x).
var Linking = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f, // type section: (i32) -> (i32)
	0x02, 0x10, 0x01, 0x05, 0x75, 0x74, 0x69, 0x6c, 0x73, 0x06, 0x64, 0x6f, 0x75, 0x62, 0x6c, 0x65, 0x00, 0x00, // import "utils"."double" func type 0
	0x03, 0x02, 0x01, 0x00, // function section: func 1 uses type 0
	0x07, 0x10, 0x01, 0x0c, 0x64, 0x6f, 0x75, 0x62, 0x6c, 0x65, 0x5f, 0x74, 0x77, 0x69, 0x63, 0x65, 0x00, 0x01, // export "double_twice" func 1
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x20, 0x00, 0x10, 0x00, 0x10, 0x00, 0x0b, // code: local.get 0; call 0; call 0; end
}
