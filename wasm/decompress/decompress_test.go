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

package decompress

import (
	"bytes"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var payload = bytes.Repeat([]byte("\x00asm\x01\x00\x00\x00 some wasm-ish payload "), 64)

func gzipped(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(w.Close()))
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	enc, err := zstd.NewWriter(nil)
	qt.Assert(t, qt.IsNil(err))
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func lz4ed(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(w.Close()))
	return buf.Bytes()
}

func TestDecompressors(t *testing.T) {
	tests := []struct {
		name     string
		compress func(*testing.T, []byte) []byte
		f        Func
	}{
		{"gzip", gzipped, Gzip},
		{"zstd", zstded, Zstd},
		{"lz4", lz4ed, LZ4},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw := test.compress(t, payload)
			got, err := test.f(raw)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.DeepEquals(got, payload))

			got, err = Auto(raw)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.DeepEquals(got, payload))

			byName, err := ByName(test.name)
			qt.Assert(t, qt.IsNil(err))
			got, err = byName(raw)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.DeepEquals(got, payload))
		})
	}
}

func TestAutoPassesThroughPlainWasm(t *testing.T) {
	got, err := Auto(payload)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(got, payload))
}

func TestCorruptInput(t *testing.T) {
	_, err := Gzip([]byte("not gzip"))
	qt.Assert(t, qt.ErrorMatches(err, `gzip: .*`))
	_, err = Zstd([]byte("not zstd"))
	qt.Assert(t, qt.ErrorMatches(err, `zstd: .*`))
}

func TestByName(t *testing.T) {
	f, err := ByName("none")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(f))

	_, err = ByName("brotli")
	qt.Assert(t, qt.ErrorMatches(err, `unknown decompression "brotli"`))
}

func TestOrIdentity(t *testing.T) {
	got, err := OrIdentity(nil)(payload)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(got, payload))
}
