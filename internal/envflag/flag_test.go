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

package envflag

import (
	"testing"
	"time"

	"github.com/go-quicktest/qt"
)

type testFlags struct {
	Verbose bool
	NoCache bool

	MaxRetries int           `envflag:"default:5"`
	Timeout    time.Duration `envflag:"default:30s"`
	Mode       string        `envflag:"default:auto"`
}

var defaults = testFlags{
	MaxRetries: 5,
	Timeout:    30 * time.Second,
	Mode:       "auto",
}

func TestParse(t *testing.T) {
	tests := []struct {
		testName string
		env      string
		want     testFlags
		wantErr  string
		invalid  bool
	}{{
		testName: "Empty",
		env:      "",
		want:     defaults,
	}, {
		testName: "JustCommas",
		env:      ",,",
		want:     defaults,
	}, {
		testName: "BareBool",
		env:      "verbose",
		want: func() testFlags {
			f := defaults
			f.Verbose = true
			return f
		}(),
	}, {
		testName: "Several",
		env:      ",nocache,maxretries=2,timeout=1m,mode=zstd,",
		want: testFlags{
			NoCache:    true,
			MaxRetries: 2,
			Timeout:    time.Minute,
			Mode:       "zstd",
		},
	}, {
		testName: "BoolFalse",
		env:      "verbose=0",
		want:     defaults,
	}, {
		testName: "Unknown",
		env:      "verbose,frobnicate,other=1",
		want: func() testFlags {
			f := defaults
			f.Verbose = true
			return f
		}(),
		wantErr: "unknown flag \"frobnicate\"\nunknown flag \"other=1\"",
	}, {
		testName: "ValueNeeded",
		env:      "maxretries",
		want:     defaults,
		wantErr:  `value needed for int flag "maxretries"`,
	}, {
		testName: "ValueNeededDuration",
		env:      "timeout",
		want:     defaults,
		wantErr:  `value needed for duration flag "timeout"`,
	}, {
		testName: "InvalidInt",
		env:      "maxretries=lots",
		want:     defaults,
		invalid:  true,
	}, {
		testName: "InvalidDuration",
		env:      "timeout=soon",
		want:     defaults,
		invalid:  true,
	}, {
		testName: "InvalidBool",
		env:      "verbose=2",
		want:     defaults,
		invalid:  true,
	}}
	for _, test := range tests {
		t.Run(test.testName, func(t *testing.T) {
			var got testFlags
			err := Parse(&got, test.env)
			switch {
			case test.invalid:
				qt.Assert(t, qt.ErrorIs(err, ErrInvalid))
			case test.wantErr != "":
				qt.Assert(t, qt.ErrorMatches(err, test.wantErr))
			default:
				qt.Assert(t, qt.IsNil(err))
			}
			qt.Assert(t, qt.Equals(got, test.want))
		})
	}
}

func TestInit(t *testing.T) {
	t.Setenv("TEST_VAR", "nocache,bogus")
	var got testFlags
	err := Init(&got, "TEST_VAR")
	qt.Assert(t, qt.ErrorMatches(err, `cannot parse TEST_VAR: unknown flag "bogus"`))
	qt.Assert(t, qt.IsTrue(got.NoCache))
}

func TestBadTag(t *testing.T) {
	var x struct {
		A bool `envflag:"deprecated"`
	}
	err := Parse(&x, "")
	qt.Assert(t, qt.ErrorMatches(err, `unknown envflag tag "deprecated"`))
}
