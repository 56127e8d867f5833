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

// Package datadir resolves the per-user local data directory in which
// downloaded Wasm artifacts are cached. It holds the only logic that
// depends on operating system conventions.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Subdir is the directory created inside the OS data directory.
const Subdir = "wasmbuild"

// EnvDataDir overrides the resolved directory entirely.
const EnvDataDir = "WASMBUILD_DATA_DIR"

// Local returns the OS-conventional local data directory for goos,
// looking up environment variables with getenv:
//
//	linux and others: $XDG_DATA_HOME, else $HOME/.local/share
//	darwin:           $HOME/Library/Application Support
//	windows:          %LOCALAPPDATA%
//
// It returns an error if the directory cannot be determined.
func Local(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "windows":
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return "", fmt.Errorf("cannot determine local data directory: %%LOCALAPPDATA%% is not set")
	case "darwin", "ios":
		if home := getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support"), nil
		}
	case "js", "wasip1":
		return "", fmt.Errorf("cannot determine local data directory on %s", goos)
	default:
		if dir := getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		if home := getenv("HOME"); home != "" {
			return filepath.Join(home, ".local", "share"), nil
		}
	}
	return "", fmt.Errorf("cannot determine local data directory: $HOME is not set")
}

// Dir returns the directory holding wasmbuild data: $WASMBUILD_DATA_DIR
// if set, otherwise the wasmbuild subdirectory of [Local].
func Dir(goos string, getenv func(string) string) (string, error) {
	if dir := getenv(EnvDataDir); dir != "" {
		return dir, nil
	}
	dir, err := Local(goos, getenv)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Subdir), nil
}

// HostDir is [Dir] for the running process.
func HostDir() (string, error) {
	return Dir(runtime.GOOS, os.Getenv)
}
