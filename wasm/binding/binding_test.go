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

package binding

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/wasmbuild/wasmbuild/internal/wasmtest"
	"github.com/wasmbuild/wasmbuild/wasm/decompress"
	"github.com/wasmbuild/wasmbuild/wasm/fetch"
	"github.com/wasmbuild/wasmbuild/wasm/loader"
	"github.com/wasmbuild/wasmbuild/wasm/locator"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func options() loader.Options {
	return loader.Options{
		Fetcher: fetch.New(&fetch.Config{MaxRetries: -1, Logger: quiet}),
		Logger:  quiet,
	}
}

// writeArtifact writes wasm as the artifact for crate "x" and returns
// the locator of a binding file next to it.
func writeArtifact(t *testing.T, wasm []byte) *url.URL {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ArtifactName("x")), wasm, 0o666)
	qt.Assert(t, qt.IsNil(err))
	base, err := locator.FileURL(filepath.Join(dir, "x.generated.go"))
	qt.Assert(t, qt.IsNil(err))
	return base
}

func TestColocated(t *testing.T) {
	base, err := url.Parse("https://example.com/pkg/v1.2.3/lib/x.generated.js")
	qt.Assert(t, qt.IsNil(err))
	u, err := Colocated(base, "x")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(u.String(), "https://example.com/pkg/v1.2.3/lib/x_bg.wasm"))
}

func TestInstantiateDefaultLocator(t *testing.T) {
	base := writeArtifact(t, wasmtest.Add)
	u, err := Colocated(base, "x")
	qt.Assert(t, qt.IsNil(err))
	m := New(u, options())
	qt.Assert(t, qt.IsFalse(m.IsInstantiated()))

	ctx := context.Background()
	inst, err := m.Instantiate(ctx, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(m.IsInstantiated()))
	qt.Assert(t, qt.DeepEquals(inst.Exports(), []string{"add"}))

	res, err := inst.Call(ctx, "add", 40, 2)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(res, []uint64{42}))

	inst2, err := m.Instantiate(ctx, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(inst2, inst))
	qt.Assert(t, qt.Equals(m.Loader().Instance(), inst.Instance))
}

func TestInstantiateOverride(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.Write(wasmtest.Prefix("z:", wasmtest.Add))
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL + "/x_bg.wasm")
	qt.Assert(t, qt.IsNil(err))

	// The default locator does not exist; the override is used.
	m := New(&url.URL{Scheme: "file", Path: "/nonexistent/x_bg.wasm"}, options())
	inst, err := m.Instantiate(context.Background(), &InstantiateOptions{
		URL: u,
		Decompress: func(data []byte) ([]byte, error) {
			return data[len("z:"):], nil
		},
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(inst.Exports(), []string{"add"}))
	qt.Assert(t, qt.Equals(hits.Load(), int64(1)))
}

func TestInstantiateNoLocator(t *testing.T) {
	m := New(nil, options())
	_, err := m.Instantiate(context.Background(), nil)
	qt.Assert(t, qt.ErrorMatches(err, `no Wasm artifact locator`))
}

func TestInstantiateConcurrent(t *testing.T) {
	u, err := Colocated(writeArtifact(t, wasmtest.Add), "x")
	qt.Assert(t, qt.IsNil(err))
	m := New(u, options())

	const n = 10
	insts := make([]*Instance, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := m.Instantiate(context.Background(), nil)
			qt.Check(t, qt.IsNil(err))
			insts[i] = inst
		}()
	}
	wg.Wait()
	for _, inst := range insts {
		qt.Assert(t, qt.Equals(inst, insts[0]))
	}
}

func TestInstantiateFailureThenRetry(t *testing.T) {
	base := writeArtifact(t, []byte("garbage"))
	u, err := Colocated(base, "x")
	qt.Assert(t, qt.IsNil(err))
	m := New(u, options())

	_, err = m.Instantiate(context.Background(), nil)
	qt.Assert(t, qt.ErrorMatches(err, `can't compile Wasm module: .*`))
	qt.Assert(t, qt.IsFalse(m.IsInstantiated()))

	file, err := locator.FilePath(u)
	qt.Assert(t, qt.IsNil(err))
	err = os.WriteFile(file, wasmtest.Add, 0o666)
	qt.Assert(t, qt.IsNil(err))
	_, err = m.Instantiate(context.Background(), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(m.IsInstantiated()))
}

func TestCallErrors(t *testing.T) {
	u, err := Colocated(writeArtifact(t, wasmtest.Add), "x")
	qt.Assert(t, qt.IsNil(err))
	inst, err := New(u, options()).Instantiate(context.Background(), nil)
	qt.Assert(t, qt.IsNil(err))

	_, err = inst.Call(context.Background(), "sub", 1, 2)
	qt.Assert(t, qt.ErrorMatches(err, `can't find function "sub" in Wasm module`))
	_, err = inst.Call(context.Background(), "add", 1)
	qt.Assert(t, qt.ErrorMatches(err, `function "add" takes 2 arguments, got 1`))

	// Add has no memory.
	_, err = inst.ReadMemory(0, 1)
	qt.Assert(t, qt.ErrorMatches(err, `Wasm module has no memory`))
	_, err = inst.Alloc(context.Background(), 4)
	qt.Assert(t, qt.ErrorMatches(err, `can't allocate memory: Wasm module does not export "allocate"`))
}

func TestMemory(t *testing.T) {
	u, err := Colocated(writeArtifact(t, wasmtest.Memory), "x")
	qt.Assert(t, qt.IsNil(err))
	inst, err := New(u, options()).Instantiate(context.Background(), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(inst.Exports(), 0))

	err = inst.WriteMemory(100, []byte("hello"))
	qt.Assert(t, qt.IsNil(err))
	got, err := inst.ReadMemory(100, 5)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(got), "hello"))

	// The result is a copy.
	got[0] = 'j'
	got2, err := inst.ReadMemory(100, 5)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(got2), "hello"))

	// One page is 64KiB.
	_, err = inst.ReadMemory(65535, 2)
	qt.Assert(t, qt.ErrorMatches(err, `can't read 2 bytes from Wasm address 0xffff`))
	err = inst.WriteMemory(65536, []byte("x"))
	qt.Assert(t, qt.ErrorMatches(err, `can't write 1 bytes to Wasm address 0x10000`))
}

func TestAlloc(t *testing.T) {
	ctx := context.Background()
	u, err := Colocated(writeArtifact(t, wasmtest.Alloc), "x")
	qt.Assert(t, qt.IsNil(err))
	inst, err := New(u, options()).Instantiate(ctx, nil)
	qt.Assert(t, qt.IsNil(err))

	m1, err := inst.Alloc(ctx, 8)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(m1.Ptr(), uint32(16)))
	qt.Assert(t, qt.Equals(m1.Len(), uint32(8)))
	qt.Assert(t, qt.DeepEquals(m1.Args(), []uint64{16, 8}))

	m2, err := inst.Alloc(ctx, 4)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(m2.Ptr(), uint32(24)))

	n, err := m1.WriteAt([]byte("wasm"), 2)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 4))
	data, err := m1.Bytes()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(data, []byte("\x00\x00wasm\x00\x00")))

	_, err = m2.WriteAt([]byte("too long"), 0)
	qt.Assert(t, qt.ErrorMatches(err, `can't write 8 bytes at offset 0 of 4-byte Wasm allocation`))

	qt.Assert(t, qt.IsNil(inst.Free(ctx, m1)))
	qt.Assert(t, qt.IsNil(inst.Free(ctx, m2)))
}

func TestDecompressorsPlugIn(t *testing.T) {
	// Any decompress.Func can be passed, including the ready-made ones.
	u, err := Colocated(writeArtifact(t, wasmtest.Add), "x")
	qt.Assert(t, qt.IsNil(err))
	inst, err := New(u, options()).Instantiate(context.Background(), &InstantiateOptions{
		Decompress: decompress.Auto,
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(inst.Exports(), []string{"add"}))
}
