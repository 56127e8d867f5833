// Copyright 2026 The Wasmbuild Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wasmtest holds small hand-assembled Wasm modules for tests.
package wasmtest

// Empty is the smallest valid module: just the header.
var Empty = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Add exports add(i32, i32) i32.
var Add = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32, i32) -> i32
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	// function section: one function of type 0
	0x03, 0x02, 0x01, 0x00,
	// export section: "add" -> func 0
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	// code section: local.get 0; local.get 1; i32.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

// Call42 imports env.get42() i32 and exports call42() i32, which
// returns whatever the import returns.
var Call42 = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: () -> i32
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	// import section: env.get42 func type 0
	0x02, 0x0d, 0x01,
	0x03, 'e', 'n', 'v',
	0x05, 'g', 'e', 't', '4', '2',
	0x00, 0x00,
	// function section: one function of type 0
	0x03, 0x02, 0x01, 0x00,
	// export section: "call42" -> func 1
	0x07, 0x0a, 0x01, 0x06, 'c', 'a', 'l', 'l', '4', '2', 0x00, 0x01,
	// code section: call 0
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x10, 0x00, 0x0b,
}

// Memory exports a one-page memory named "memory" and nothing else.
var Memory = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: "memory" -> memory 0
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

// Alloc exports a one-page memory named "memory", a bump allocator
// allocate(size i32) i32 whose first block starts at 16, and a no-op
// deallocate(ptr, size i32).
var Alloc = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32) -> i32, (i32, i32) -> ()
	0x01, 0x0b, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x00,
	// function section: allocate type 0, deallocate type 1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global section: mutable i32 next = 16
	0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x10, 0x0b,
	// export section
	0x07, 0x22, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x08, 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x00,
	0x0a, 'd', 'e', 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x01,
	// code section
	0x0a, 0x10, 0x02,
	// allocate: global.get 0; global.get 0; local.get 0; i32.add; global.set 0
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	// deallocate: nothing
	0x02, 0x00, 0x0b,
}

// Prefix returns data with marker prepended, so that a test
// "decompressor" can be written as the inverse operation.
func Prefix(marker string, data []byte) []byte {
	return append([]byte(marker), data...)
}
