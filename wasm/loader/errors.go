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

import "errors"

// ErrLocalFilesUnsupported is returned when a file locator is loaded
// in an [Environment] that cannot read local files.
var ErrLocalFilesUnsupported = errors.New("loading local files is not supported in this environment")

// UnsupportedProtocolError is returned when a locator's scheme is
// neither file, http nor https.
type UnsupportedProtocolError struct {
	// Scheme holds the offending protocol, including the trailing
	// colon, as in "ftp:".
	Scheme string
}

func (e *UnsupportedProtocolError) Error() string {
	return "unsupported protocol: " + e.Scheme
}
