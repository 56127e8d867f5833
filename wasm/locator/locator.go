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

// Package locator holds helpers for the URLs that identify where Wasm
// artifact bytes come from.
//
// A locator is a plain [*url.URL] with one of the schemes
// [SchemeFile], [SchemeHTTP] or [SchemeHTTPS]. Any other scheme is
// reported as unsupported by the loader.
package locator

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Kind classifies a locator by how its bytes are obtained.
type Kind int

const (
	Unsupported Kind = iota
	Local
	Network
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Network:
		return "network"
	default:
		return "unsupported"
	}
}

// Classify reports how the bytes behind u are obtained.
func Classify(u *url.URL) Kind {
	switch strings.ToLower(u.Scheme) {
	case SchemeFile:
		return Local
	case SchemeHTTP, SchemeHTTPS:
		return Network
	}
	return Unsupported
}

// IsFile reports whether u refers to the local file system.
func IsFile(u *url.URL) bool {
	return Classify(u) == Local
}

// Protocol returns the scheme of u in the "scheme:" form used in
// error messages.
func Protocol(u *url.URL) string {
	return strings.ToLower(u.Scheme) + ":"
}

// FileURL returns the file URL for the given OS path. Relative
// paths are made absolute first.
func FileURL(path string) (*url.URL, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot make %q absolute: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// Windows volume names such as C:/x become /C:/x.
		p = "/" + p
	}
	return &url.URL{Scheme: SchemeFile, Path: p}, nil
}

// FilePath returns the OS path for a file URL.
func FilePath(u *url.URL) (string, error) {
	if !IsFile(u) {
		return "", fmt.Errorf("%s is not a file URL", u.Redacted())
	}
	if u.Host != "" && u.Host != "localhost" {
		if runtime.GOOS != "windows" {
			return "", fmt.Errorf("file URL %s names a remote host", u.Redacted())
		}
		// UNC path.
		return `\\` + u.Host + filepath.FromSlash(u.Path), nil
	}
	p := u.Path
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// Parse interprets s either as a URL with an explicit scheme or,
// failing that, as a local file path.
func Parse(s string) (*url.URL, error) {
	if s == "" {
		return nil, fmt.Errorf("empty locator")
	}
	u, err := url.Parse(s)
	// A single-letter scheme is a Windows drive letter, not a URL.
	if err == nil && len(u.Scheme) > 1 {
		return u, nil
	}
	return FileURL(s)
}

// Resolve resolves ref relative to the locator of the file that
// refers to it, in the way a binding file names the artifact that
// sits next to it.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(r), nil
}
