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

// Package envflag parses comma-separated name=value settings held in
// an environment variable into the fields of a struct.
package envflag

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Init uses Parse with the contents of the given environment variable as input.
func Init[T any](flags *T, envVar string) error {
	if err := Parse(flags, os.Getenv(envVar)); err != nil {
		return fmt.Errorf("cannot parse %s: %w", envVar, err)
	}
	return nil
}

// Parse sets the fields of flags from their `envflag:"default:..."`
// struct tags and then from env.
//
// env holds a comma-separated list of name=value pairs. Names are the
// lower-cased field names. A bare name sets a boolean field to true;
// fields of any other kind need a value. Supported kinds are bool,
// int, string and [time.Duration].
func Parse[T any](flags *T, env string) error {
	v := reflect.ValueOf(flags).Elem()
	byName := make(map[string]reflect.Value)
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		name := strings.ToLower(f.Name)
		field := v.Field(i)
		byName[name] = field
		tag, ok := f.Tag.Lookup("envflag")
		if !ok {
			continue
		}
		def, ok := strings.CutPrefix(tag, "default:")
		if !ok {
			return fmt.Errorf("unknown envflag tag %q", tag)
		}
		if err := set(field, name, def); err != nil {
			return err
		}
	}

	var errs []error
	for _, elem := range strings.Split(env, ",") {
		if elem == "" {
			// Tolerate empty elements so values can be appended
			// to with a leading comma.
			continue
		}
		name, val, hasVal := strings.Cut(elem, "=")
		field, ok := byName[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("unknown flag %q", elem))
		case hasVal:
			if err := set(field, name, val); err != nil {
				errs = append(errs, err)
			}
		case field.Kind() == reflect.Bool:
			field.SetBool(true)
		default:
			errs = append(errs, fmt.Errorf("value needed for %s flag %q", kindName(field), name))
		}
	}
	return errors.Join(errs...)
}

var durationType = reflect.TypeFor[time.Duration]()

func kindName(field reflect.Value) string {
	if field.Type() == durationType {
		return "duration"
	}
	return field.Kind().String()
}

func set(field reflect.Value, name, str string) error {
	var err error
	switch {
	case field.Type() == durationType:
		var d time.Duration
		d, err = time.ParseDuration(str)
		if err == nil {
			field.SetInt(int64(d))
		}
	case field.Kind() == reflect.Bool:
		var b bool
		b, err = strconv.ParseBool(str)
		if err == nil {
			field.SetBool(b)
		}
	case field.Kind() == reflect.Int:
		var n int
		n, err = strconv.Atoi(str)
		if err == nil {
			field.SetInt(int64(n))
		}
	case field.Kind() == reflect.String:
		field.SetString(str)
	default:
		return errInvalid{fmt.Errorf("unsupported kind %s for %s", field.Kind(), name)}
	}
	if err != nil {
		return errInvalid{fmt.Errorf("invalid %s value for %s: %v", kindName(field), name, err)}
	}
	return nil
}

// ErrInvalid indicates a malformed value.
var ErrInvalid = errors.New("invalid value")

type errInvalid struct{ error }

func (errInvalid) Is(err error) bool {
	return err == ErrInvalid
}
