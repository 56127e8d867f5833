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

// Package loader turns an artifact locator into a live Wasm module
// instance, exactly once per [Loader].
//
// A load classifies the locator, optionally consults a local cache for
// network artifacts, reads or downloads the bytes, optionally
// decompresses them, then compiles and instantiates the module with
// wazero. Concurrent calls to [Loader.Load] share a single in-flight
// load; a successful result is memoized for the lifetime of the
// Loader, while a failure leaves the Loader ready for a fresh attempt.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/sync/singleflight"

	"github.com/wasmbuild/wasmbuild/wasm/decompress"
	"github.com/wasmbuild/wasmbuild/wasm/fetch"
	"github.com/wasmbuild/wasmbuild/wasm/locator"
	"github.com/wasmbuild/wasmbuild/wasm/wasmcache"
)

// wasmContentType is the media type that selects the streaming path.
const wasmContentType = "application/wasm"

// maxPresize bounds the buffer allocated up front from a declared
// Content-Length; larger bodies grow the buffer as they are read.
const maxPresize = 64 << 20

// Imports holds the host functions made available to a module, keyed
// by import module name and then by function name. Each value must be
// a Go func acceptable to wazero's HostFunctionBuilder.WithFunc.
type Imports map[string]map[string]any

// Cache is implemented by [*wasmcache.Store].
type Cache interface {
	Cache(ctx context.Context, u *url.URL, decompress decompress.Func) (wasmcache.Entry, error)
}

// Fetcher is implemented by [*fetch.Fetcher].
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*http.Response, error)
}

// Options holds the configuration of a [Loader].
type Options struct {
	// Imports is passed through unchanged to the instantiated module.
	Imports Imports

	// Cache, if non-nil, is consulted for network locators. Any error
	// it returns is logged and the artifact is loaded directly.
	Cache Cache

	// Fetcher downloads network artifacts that are not served by
	// Cache. If it is nil, a [fetch.Fetcher] with default settings is
	// used.
	Fetcher Fetcher

	// Env describes the host. If it is nil, [HostEnvironment] is used.
	Env Environment

	// Logger is used for diagnostics. If it is nil, [slog.Default]
	// is used.
	Logger *slog.Logger

	// RuntimeConfig configures the wazero runtime. If it is nil,
	// wazero.NewRuntimeConfig is used.
	RuntimeConfig wazero.RuntimeConfig

	// ModuleConfig configures the instantiated module. If it is nil,
	// wazero.NewModuleConfig is used.
	ModuleConfig wazero.ModuleConfig

	// WASI instantiates wasi_snapshot_preview1 before the module.
	WASI bool
}

// Instantiated is a compiled module together with its live instance.
type Instantiated struct {
	Module   wazero.CompiledModule
	Instance api.Module

	runtime wazero.Runtime
}

// Runtime returns the wazero runtime that owns the instance.
func (i *Instantiated) Runtime() wazero.Runtime {
	return i.runtime
}

// A Loader loads a single Wasm module. The zero value is not usable;
// call [New].
type Loader struct {
	opts   Options
	logger *slog.Logger

	// group deduplicates concurrent loads, all of which use loadKey.
	group singleflight.Group

	// mu guards inst.
	mu   sync.Mutex
	inst *Instantiated
}

const loadKey = "load"

// New returns a Loader using the given options.
func New(opts Options) *Loader {
	l := &Loader{
		opts:   opts,
		logger: opts.Logger,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.opts.Env == nil {
		l.opts.Env = HostEnvironment()
	}
	if l.opts.Fetcher == nil {
		l.opts.Fetcher = fetch.New(&fetch.Config{Logger: l.logger})
	}
	return l
}

// Load returns the instantiated module, loading it from u if that
// has not happened yet. If decompress is non-nil, it is applied to
// the artifact bytes before compilation, but never to bytes served
// from a local cache entry.
//
// If another call is already loading the module, Load waits for that
// load and returns its result, whatever u and decompress were passed
// to it. Once a load has started it runs to completion even if ctx is
// done; only the wait is abandoned, with ctx.Err.
//
// After a failed load the Loader is back in its initial state and the
// next call starts over.
func (l *Loader) Load(ctx context.Context, u *url.URL, decompress decompress.Func) (*Instantiated, error) {
	if inst := l.instantiated(); inst != nil {
		return inst, nil
	}
	ch := l.group.DoChan(loadKey, func() (any, error) {
		// A load may have completed between the check above and
		// this call starting.
		if inst := l.instantiated(); inst != nil {
			return inst, nil
		}
		inst, err := l.load(context.WithoutCancel(ctx), u, decompress)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.inst = inst
		l.mu.Unlock()
		return inst, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Instantiated), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Instance returns the live module instance, or nil if the module has
// not been instantiated.
func (l *Loader) Instance() api.Module {
	if inst := l.instantiated(); inst != nil {
		return inst.Instance
	}
	return nil
}

// Module returns the compiled module, or nil if the module has not
// been instantiated.
func (l *Loader) Module() wazero.CompiledModule {
	if inst := l.instantiated(); inst != nil {
		return inst.Module
	}
	return nil
}

// IsInstantiated reports whether a load has succeeded.
func (l *Loader) IsInstantiated() bool {
	return l.instantiated() != nil
}

func (l *Loader) instantiated() *Instantiated {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inst
}

// load performs a single load attempt.
func (l *Loader) load(ctx context.Context, u *url.URL, decompress decompress.Func) (*Instantiated, error) {
	logger := l.logger.With("load", uuid.NewString())
	kind := locator.Classify(u)
	if kind == locator.Unsupported {
		return nil, &UnsupportedProtocolError{Scheme: locator.Protocol(u)}
	}
	start := time.Now()
	logger.DebugContext(ctx, "loading Wasm module", "url", u.Redacted())

	wasm, err := l.read(ctx, logger, u, kind, decompress)
	if err != nil {
		logger.DebugContext(ctx, "load failed", "err", err)
		return nil, err
	}
	inst, err := l.instantiate(ctx, wasm)
	if err != nil {
		logger.DebugContext(ctx, "load failed", "err", err)
		return nil, err
	}
	logger.DebugContext(ctx, "loaded Wasm module",
		"size", len(wasm),
		"exports", len(inst.Module.ExportedFunctions()),
		"elapsed", time.Since(start),
	)
	return inst, nil
}

// read returns the module bytes for u, decompressed if necessary.
func (l *Loader) read(ctx context.Context, logger *slog.Logger, u *url.URL, kind locator.Kind, decompress decompress.Func) ([]byte, error) {
	if l.opts.Cache != nil && kind == locator.Network {
		e, err := l.opts.Cache.Cache(ctx, u, decompress)
		switch {
		case err == nil && e.URL != nil:
			logger.DebugContext(ctx, "using cache entry", "file", e.URL.Path)
			// The entry already holds decompressed bytes.
			u, kind, decompress = e.URL, locator.Local, nil
		case err == nil:
			logger.DebugContext(ctx, "using downloaded bytes; cache not writable")
			return e.Data, nil
		default:
			// Caching is best effort; load directly instead.
			logger.DebugContext(ctx, "cache failed; loading directly", "err", err)
		}
	}

	var data []byte
	switch kind {
	case locator.Local:
		if !l.opts.Env.CanReadLocalFiles() {
			return nil, ErrLocalFilesUnsupported
		}
		file, err := locator.FilePath(u)
		if err != nil {
			return nil, err
		}
		data, err = l.opts.Env.ReadFile(file)
		if err != nil {
			return nil, err
		}
	case locator.Network:
		var err error
		data, err = l.download(ctx, logger, u, decompress == nil)
		if err != nil {
			return nil, err
		}
	}
	if decompress == nil {
		return data, nil
	}
	data, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decompress %s: %w", u.Redacted(), err)
	}
	return data, nil
}

// download fetches u. When streaming is allowed and the server
// declares the Wasm media type, the body is read straight into a
// buffer pre-sized from the declared length, up to maxPresize.
func (l *Loader) download(ctx context.Context, logger *slog.Logger, u *url.URL, streaming bool) ([]byte, error) {
	resp, err := l.opts.Fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := fetch.CheckResponse(resp); err != nil {
		return nil, err
	}
	if streaming && isWasm(resp.Header.Get("Content-Type")) {
		logger.DebugContext(ctx, "streaming Wasm response", "contentLength", resp.ContentLength)
		var buf bytes.Buffer
		if resp.ContentLength > 0 {
			buf.Grow(int(min(resp.ContentLength, maxPresize)))
		}
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", u.Redacted(), err)
		}
		return buf.Bytes(), nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", u.Redacted(), err)
	}
	return data, nil
}

func isWasm(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == wasmContentType
}
