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

// Package wasmcache provides a file-based cache for Wasm artifacts
// downloaded over the network.
//
// Entries are content addressed by the SHA-256 digest of the artifact
// URL and hold the decompressed artifact bytes. Entries are never
// invalidated: an artifact URL is assumed to name immutable content.
package wasmcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	digest "github.com/opencontainers/go-digest"
	"github.com/rogpeppe/go-internal/robustio"

	"github.com/wasmbuild/wasmbuild/internal/datadir"
	"github.com/wasmbuild/wasmbuild/wasm/decompress"
	"github.com/wasmbuild/wasmbuild/wasm/fetch"
	"github.com/wasmbuild/wasmbuild/wasm/locator"
)

// ErrUnavailable is returned, wrapped, by [Store.Cache] when no cache
// directory can be used.
var ErrUnavailable = errors.New("cache unavailable")

// ext is the file name extension of cache entries.
const ext = ".wasm"

// Fetcher is implemented by [*fetch.Fetcher].
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*http.Response, error)
}

// Config holds configuration for [New].
type Config struct {
	// DataDir resolves the cache directory. If it is nil,
	// [datadir.HostDir] is used.
	DataDir func() (string, error)

	// Fetcher downloads artifacts on a cache miss. If it is nil,
	// a [fetch.Fetcher] with default settings is used.
	Fetcher Fetcher

	// Logger is used for diagnostics. If it is nil,
	// [slog.Default] is used.
	Logger *slog.Logger
}

// Store is a local, on-disk artifact cache. The directory may be
// shared by several processes; they do not lock against one another,
// and at worst the same entry is downloaded and written twice.
type Store struct {
	dataDir func() (string, error)
	fetcher Fetcher
	logger  *slog.Logger

	// write is replaced in tests.
	write func(ctx context.Context, file string, data []byte) error
}

// New returns a Store. If cfg is nil, it's equivalent to a pointer
// to a zero-valued [Config].
func New(cfg *Config) *Store {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	s := &Store{
		dataDir: c.DataDir,
		fetcher: c.Fetcher,
		logger:  c.Logger,
		write:   writeFile,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.dataDir == nil {
		s.dataDir = datadir.HostDir
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(&fetch.Config{Logger: s.logger})
	}
	return s
}

// Entry is the result of [Store.Cache]. Exactly one of its fields is
// set.
type Entry struct {
	// URL is the file URL of the cached, already decompressed
	// artifact.
	URL *url.URL

	// Data holds the decompressed artifact when it was downloaded
	// but could not be written to the cache.
	Data []byte
}

// Cache returns a local copy of the artifact at u, downloading it and
// applying decompressFunc on a miss. decompressFunc is never applied to
// bytes read back from the cache.
//
// An error wrapping [ErrUnavailable] means that caching is not
// possible at all. Failure to write a downloaded artifact is not an
// error: the bytes are returned in [Entry.Data] instead.
func (s *Store) Cache(ctx context.Context, u *url.URL, decompressFunc decompress.Func) (Entry, error) {
	file, err := s.Path(u)
	if err != nil {
		return Entry{}, err
	}
	if _, err := os.Stat(file); err == nil {
		return s.entry(file)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.DebugContext(ctx, "downloading artifact", "url", u.Redacted(), "file", file)
	data, err := s.download(ctx, u)
	if err != nil {
		return Entry{}, err
	}
	if data, err = decompress.OrIdentity(decompressFunc)(data); err != nil {
		return Entry{}, fmt.Errorf("cannot decompress %s: %w", u.Redacted(), err)
	}
	if err := s.write(ctx, file, data); err != nil {
		// Typically a read-only file system.
		s.logger.DebugContext(ctx, "cannot write cache entry; using downloaded bytes", "file", file, "err", err)
		return Entry{Data: data}, nil
	}
	return s.entry(file)
}

func (s *Store) entry(file string) (Entry, error) {
	u, err := locator.FileURL(file)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Entry{URL: u}, nil
}

func (s *Store) download(ctx context.Context, u *url.URL) ([]byte, error) {
	resp, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := fetch.CheckResponse(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", u.Redacted(), err)
	}
	return data, nil
}

// Dir returns the cache directory, creating it if needed.
func (s *Store) Dir() (string, error) {
	dir, err := s.dataDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%w: %q is not a directory", ErrUnavailable, dir)
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dir, nil
}

// Path returns the name of the cache file for u, creating the cache
// directory if needed. The file may not exist.
func (s *Store) Path(u *url.URL) (string, error) {
	dir, err := s.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Key(u)+ext), nil
}

// Key returns the hex-encoded SHA-256 digest of the string form of u.
func Key(u *url.URL) string {
	return digest.FromString(u.String()).Encoded()
}

// Clean removes every entry from the cache and returns the number of
// entries removed. Files that are not cache entries are left alone.
func (s *Store) Clean() (int, error) {
	dir, err := s.Dir()
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isEntryName(name) {
			continue
		}
		if err := robustio.RemoveAll(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func isEntryName(name string) bool {
	key, ok := strings.CutSuffix(name, ext)
	if !ok {
		return false
	}
	return digest.NewDigestFromEncoded(digest.SHA256, key).Validate() == nil
}

// writeFile writes data to file via a temporary file in the same
// directory and a rename, so that readers never observe a partially
// written entry.
func writeFile(ctx context.Context, file string, data []byte) (err error) {
	f, err := tempFile(ctx, filepath.Dir(file), filepath.Base(file), 0o666)
	if err != nil {
		return err
	}
	defer func() {
		// Only remove f.Name() if we failed to rename it: otherwise
		// another process may already have replaced it.
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return robustio.Rename(f.Name(), file)
}

// tempFile creates a new temporary file with given permission bits.
func tempFile(ctx context.Context, dir, prefix string, perm fs.FileMode) (f *os.File, err error) {
	for range 10000 {
		name := filepath.Join(dir, prefix+strconv.Itoa(rand.IntN(1000000000))+".tmp")
		f, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
		if os.IsExist(err) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		break
	}
	return
}
