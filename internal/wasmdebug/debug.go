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

// Package wasmdebug holds the WASMBUILD_DEBUG settings.
package wasmdebug

import (
	"sync"
	"time"

	"github.com/wasmbuild/wasmbuild/internal/envflag"
)

// EnvVar names the environment variable read by Init.
const EnvVar = "WASMBUILD_DEBUG"

// Flags holds the set of global WASMBUILD_DEBUG flags. It is initialized by Init.
var Flags Config

// Config holds the set of known WASMBUILD_DEBUG flags.
type Config struct {
	// HTTP enables JSON logging per HTTP request and response made
	// when fetching artifacts.
	HTTP bool

	// NoCache disables the local artifact cache.
	NoCache bool

	// MaxRetries holds the number of times a failed artifact
	// download is retried.
	MaxRetries int `envflag:"default:5"`

	// Timeout bounds each individual HTTP request. Zero means no
	// limit.
	Timeout time.Duration
}

// Init initializes Flags. It is not an init function so that a
// malformed WASMBUILD_DEBUG is reported as an error rather than a
// panic.
func Init() error {
	return initOnce()
}

var initOnce = sync.OnceValue(func() error {
	return envflag.Init(&Flags, EnvVar)
})
