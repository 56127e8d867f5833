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

package wasmtest

import (
	"context"
	"slices"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/tetratelabs/wazero"
)

func TestFixturesCompile(t *testing.T) {
	tests := []struct {
		name    string
		wasm    []byte
		exports []string
	}{
		{"Empty", Empty, nil},
		{"Add", Add, []string{"add"}},
		{"Call42", Call42, []string{"call42"}},
		{"Memory", Memory, nil},
		{"Alloc", Alloc, []string{"allocate", "deallocate"}},
	}
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mod, err := r.CompileModule(ctx, test.wasm)
			qt.Assert(t, qt.IsNil(err))
			var got []string
			for name := range mod.ExportedFunctions() {
				got = append(got, name)
			}
			slices.Sort(got)
			qt.Assert(t, qt.DeepEquals(got, test.exports))
		})
	}
}

func TestPrefix(t *testing.T) {
	got := Prefix("x:", Empty)
	qt.Assert(t, qt.DeepEquals(got[:2], []byte("x:")))
	qt.Assert(t, qt.DeepEquals(got[2:], Empty))
	// Empty itself is untouched.
	qt.Assert(t, qt.HasLen(Empty, 8))
}
