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

// Package binding is the runtime half of generated Wasm bindings.
//
// Generated code declares one [Module] per artifact, pointing at the
// artifact that sits next to it, and binds its exported functions to
// the [Instance] returned by [Module.Instantiate]. The export set is
// opaque here: names are looked up when called.
package binding

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmbuild/wasmbuild/wasm/decompress"
	"github.com/wasmbuild/wasmbuild/wasm/loader"
	"github.com/wasmbuild/wasmbuild/wasm/locator"
)

// ArtifactName returns the file name of the artifact built for the
// named crate.
func ArtifactName(crate string) string {
	return crate + "_bg.wasm"
}

// Colocated returns the locator of the artifact for crate that sits
// next to base, typically the location of the generated binding file.
func Colocated(base *url.URL, crate string) (*url.URL, error) {
	return locator.Resolve(base, ArtifactName(crate))
}

// Module is a Wasm module that is instantiated on demand.
type Module struct {
	defaultURL *url.URL
	loader     *loader.Loader

	// mu guards inst.
	mu   sync.Mutex
	inst *Instance
}

// New returns a Module that loads from defaultURL unless told
// otherwise.
func New(defaultURL *url.URL, opts loader.Options) *Module {
	return &Module{
		defaultURL: defaultURL,
		loader:     loader.New(opts),
	}
}

// InstantiateOptions holds the options for [Module.Instantiate].
type InstantiateOptions struct {
	// URL overrides the default artifact locator.
	URL *url.URL

	// Decompress, if non-nil, is applied to the downloaded artifact.
	Decompress decompress.Func
}

// Instantiate loads and instantiates the module if that has not
// happened yet and returns the instance. All calls that succeed
// return the same *Instance. A nil opts is the same as a zero
// [InstantiateOptions].
func (m *Module) Instantiate(ctx context.Context, opts *InstantiateOptions) (*Instance, error) {
	u := m.defaultURL
	var dec decompress.Func
	if opts != nil {
		if opts.URL != nil {
			u = opts.URL
		}
		dec = opts.Decompress
	}
	if u == nil {
		return nil, fmt.Errorf("no Wasm artifact locator")
	}
	li, err := m.loader.Load(ctx, u, dec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		m.inst = newInstance(li)
	}
	return m.inst, nil
}

// IsInstantiated reports whether the module has been instantiated.
func (m *Module) IsInstantiated() bool {
	return m.loader.IsInstantiated()
}

// Loader returns the loader used by m.
func (m *Module) Loader() *loader.Loader {
	return m.loader
}

// An Instance is a Wasm module loaded into memory.
type Instance struct {
	// mu serializes calls into the instance.
	mu sync.Mutex

	*loader.Instantiated

	// alloc is a guest function that allocates guest memory on
	// behalf of the host.
	alloc api.Function

	// free is a guest function that frees guest memory on
	// behalf of the host.
	free api.Function
}

func newInstance(li *loader.Instantiated) *Instance {
	return &Instance{
		Instantiated: li,
		alloc:        li.Instance.ExportedFunction("allocate"),
		free:         li.Instance.ExportedFunction("deallocate"),
	}
}

// Exports returns the sorted names of the exported functions.
func (i *Instance) Exports() []string {
	defs := i.Module.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Func returns the named exported function.
func (i *Instance) Func(name string) (api.Function, error) {
	f := i.Instance.ExportedFunction(name)
	if f == nil {
		return nil, fmt.Errorf("can't find function %q in Wasm module", name)
	}
	return f, nil
}

// Call calls the named exported function.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	f, err := i.Func(name)
	if err != nil {
		return nil, err
	}
	if n := len(f.Definition().ParamTypes()); n != len(args) {
		return nil, fmt.Errorf("function %q takes %d arguments, got %d", name, n, len(args))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return f.Call(ctx, args...)
}

func (i *Instance) memory() (api.Memory, error) {
	mem := i.Instance.Memory()
	if mem == nil {
		return nil, fmt.Errorf("Wasm module has no memory")
	}
	return mem, nil
}

// ReadMemory returns a copy of n bytes of guest memory at offset.
func (i *Instance) ReadMemory(offset, n uint32) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	mem, err := i.memory()
	if err != nil {
		return nil, err
	}
	p, ok := mem.Read(offset, n)
	if !ok {
		return nil, fmt.Errorf("can't read %d bytes from Wasm address %#x", n, offset)
	}
	return slices.Clone(p), nil
}

// WriteMemory writes p to guest memory at offset.
func (i *Instance) WriteMemory(offset uint32, p []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	mem, err := i.memory()
	if err != nil {
		return err
	}
	if !mem.Write(offset, p) {
		return fmt.Errorf("can't write %d bytes to Wasm address %#x", len(p), offset)
	}
	return nil
}

// Alloc returns a reference to newly allocated guest memory that spans
// the provided size. The module must export allocate.
func (i *Instance) Alloc(ctx context.Context, size uint32) (*Memory, error) {
	if i.alloc == nil {
		return nil, fmt.Errorf("can't allocate memory: Wasm module does not export %q", "allocate")
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	res, err := i.alloc.Call(ctx, uint64(size))
	if err != nil {
		return nil, fmt.Errorf("can't allocate memory: requested %d bytes: %w", size, err)
	}
	return &Memory{
		i:   i,
		ptr: uint32(res[0]),
		len: size,
	}, nil
}

// Free frees previously allocated guest memory. It does nothing if
// the module does not export deallocate.
func (i *Instance) Free(ctx context.Context, m *Memory) error {
	if i.free == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	_, err := i.free.Call(ctx, uint64(m.ptr), uint64(m.len))
	return err
}

// Memory is a read and write reference to guest memory that the host
// requested.
type Memory struct {
	i   *Instance
	ptr uint32
	len uint32
}

// Ptr returns the guest address of m.
func (m *Memory) Ptr() uint32 { return m.ptr }

// Len returns the size of m in bytes.
func (m *Memory) Len() uint32 { return m.len }

// Bytes returns a copy of the contents of m.
func (m *Memory) Bytes() ([]byte, error) {
	return m.i.ReadMemory(m.ptr, m.len)
}

// WriteAt writes p at the given relative offset within m.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(m.len) {
		return 0, fmt.Errorf("can't write %d bytes at offset %d of %d-byte Wasm allocation", len(p), off, m.len)
	}
	if err := m.i.WriteMemory(m.ptr+uint32(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Args returns m as a pair of arguments directly passable to Wasm.
func (m *Memory) Args() []uint64 {
	return []uint64{uint64(m.ptr), uint64(m.len)}
}
