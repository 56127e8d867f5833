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

package loader

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// instantiate compiles wasm and instantiates it in a new runtime
// along with the configured host modules. Every attempt gets its own
// runtime, so a failed attempt leaves nothing behind.
func (l *Loader) instantiate(ctx context.Context, wasm []byte) (_ *Instantiated, err error) {
	cfg := l.opts.RuntimeConfig
	if cfg == nil {
		cfg = wazero.NewRuntimeConfig()
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer func() {
		if err != nil {
			r.Close(ctx)
		}
	}()

	if l.opts.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return nil, fmt.Errorf("can't instantiate WASI: %w", err)
		}
	}
	if err := instantiateImports(ctx, r, l.opts.Imports); err != nil {
		return nil, err
	}

	mod, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("can't compile Wasm module: %w", err)
	}
	modCfg := l.opts.ModuleConfig
	if modCfg == nil {
		modCfg = wazero.NewModuleConfig()
	}
	inst, err := r.InstantiateModule(ctx, mod, modCfg)
	if err != nil {
		return nil, fmt.Errorf("can't instantiate Wasm module: %w", err)
	}
	return &Instantiated{
		Module:   mod,
		Instance: inst,
		runtime:  r,
	}, nil
}

// instantiateImports defines one host module per entry in imports.
func instantiateImports(ctx context.Context, r wazero.Runtime, imports Imports) error {
	for _, modName := range slices.Sorted(maps.Keys(imports)) {
		funcs := imports[modName]
		b := r.NewHostModuleBuilder(modName)
		for _, name := range slices.Sorted(maps.Keys(funcs)) {
			b = b.NewFunctionBuilder().WithFunc(funcs[name]).Export(name)
		}
		if _, err := b.Instantiate(ctx); err != nil {
			return fmt.Errorf("can't instantiate host module %q: %w", modName, err)
		}
	}
	return nil
}
