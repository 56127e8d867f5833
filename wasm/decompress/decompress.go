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

// Package decompress defines the function type used to turn raw
// artifact bytes into Wasm bytes before instantiation, along with
// implementations for the compression formats commonly used to ship
// Wasm artifacts.
//
// The loader itself knows nothing about any of these formats: it only
// ever calls a [Func] supplied by its caller.
package decompress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Func transforms raw artifact bytes into the bytes to instantiate.
// It must not retain or modify its argument.
type Func func(raw []byte) ([]byte, error)

// Identity returns its input unchanged.
func Identity(raw []byte) ([]byte, error) {
	return raw, nil
}

// Gzip decompresses a gzip stream.
func Gzip(raw []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return data, nil
}

// zstd.Decoder is safe for concurrent use via DecodeAll.
var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// Zstd decompresses a zstd frame.
func Zstd(raw []byte) ([]byte, error) {
	d, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	data, err := d.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return data, nil
}

// LZ4 decompresses an LZ4 frame (not a raw block).
func LZ4(raw []byte) ([]byte, error) {
	data, err := io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	return data, nil
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Auto picks a decompressor from the leading magic bytes of raw.
// Input that does not start with a known magic number is returned
// unchanged, so plain Wasm passes straight through.
func Auto(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, gzipMagic):
		return Gzip(raw)
	case bytes.HasPrefix(raw, zstdMagic):
		return Zstd(raw)
	case bytes.HasPrefix(raw, lz4Magic):
		return LZ4(raw)
	}
	return raw, nil
}

// ByName returns the decompressor with the given name: "auto",
// "gzip", "zstd" or "lz4". The names "" and "none" return nil, which
// the loader treats as "no decompression".
func ByName(name string) (Func, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "auto":
		return Auto, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return nil, fmt.Errorf("unknown decompression %q", name)
}

// OrIdentity returns f, or Identity if f is nil.
func OrIdentity(f Func) Func {
	if f == nil {
		return Identity
	}
	return f
}
