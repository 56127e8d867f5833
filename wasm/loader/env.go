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

// Environment describes what the host lets a loader do.
type Environment interface {
	// CanReadLocalFiles reports whether file locators can be loaded.
	CanReadLocalFiles() bool

	// ReadFile reads the named local file.
	ReadFile(name string) ([]byte, error)
}

// HostEnvironment returns the Environment of the running process.
func HostEnvironment() Environment {
	return hostEnvironment{}
}

type hostEnvironment struct{}

func (hostEnvironment) CanReadLocalFiles() bool {
	return canReadLocalFiles
}
