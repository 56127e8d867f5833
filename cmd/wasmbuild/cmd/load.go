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

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasmbuild/wasmbuild/internal/wasmdebug"
	"github.com/wasmbuild/wasmbuild/wasm/binding"
	"github.com/wasmbuild/wasmbuild/wasm/decompress"
	"github.com/wasmbuild/wasmbuild/wasm/loader"
	"github.com/wasmbuild/wasmbuild/wasm/locator"
)

func newLoadCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <locator>",
		Short: "load a Wasm artifact and list its exported functions",
		Long: `Load loads a Wasm artifact from a local path, a file URL or an
http(s) URL, instantiates it, and prints the signature of each exported
function.

Network artifacts are downloaded with retries and stored in the local
cache unless --no-cache is given. With --decompress, the downloaded
bytes are decompressed before they are cached and compiled; "auto"
detects gzip, zstd and lz4 from the data.

Exported functions taking numeric arguments can be called with --call:

	wasmbuild load ./lib/x_bg.wasm --call "add 1 2"
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, runLoad),
	}
	addLoadFlags(cmd.Flags())
	return cmd
}

func runLoad(cmd *Command, args []string) error {
	ctx := cmd.Context()
	u, err := locator.Parse(args[0])
	if err != nil {
		return err
	}
	dec, err := decompress.ByName(flagDecompress.String(cmd))
	if err != nil {
		return err
	}
	calls, err := parseCalls(flagCall.StringArray(cmd))
	if err != nil {
		return err
	}

	opts := loader.Options{
		Fetcher: cmd.fetcher(),
		Logger:  cmd.Logger(),
		WASI:    flagWASI.Bool(cmd),
	}
	if !flagNoCache.Bool(cmd) && !wasmdebug.Flags.NoCache {
		opts.Cache = cmd.store()
	}
	if opts.WASI {
		opts.ModuleConfig = wazero.NewModuleConfig().
			WithStdout(cmd.OutOrStdout()).
			WithStderr(cmd.OutOrStderr())
	}
	inst, err := binding.New(u, opts).Instantiate(ctx, &binding.InstantiateOptions{
		Decompress: dec,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	defs := inst.Module.ExportedFunctions()
	for _, name := range inst.Exports() {
		fmt.Fprintln(w, signature(name, defs[name]))
	}
	for _, call := range calls {
		def, ok := defs[call.name]
		if !ok {
			return fmt.Errorf("can't find function %q in Wasm module", call.name)
		}
		params, err := encodeArgs(def.ParamTypes(), call.args)
		if err != nil {
			return fmt.Errorf("cannot call %s: %v", call.name, err)
		}
		results, err := inst.Call(ctx, call.name, params...)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s(%s) = %s\n", call.name, strings.Join(call.args, ", "), decodeResults(def.ResultTypes(), results))
	}
	return nil
}

type funcCall struct {
	name string
	args []string
}

// parseCalls splits each --call value into a function name and its
// arguments, using shell quoting rules.
func parseCalls(flags []string) ([]funcCall, error) {
	var calls []funcCall
	for _, f := range flags {
		words, err := shlex.Split(f)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s value %q: %v", flagCall, f, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("invalid --%s value %q: no function name", flagCall, f)
		}
		calls = append(calls, funcCall{name: words[0], args: words[1:]})
	}
	return calls, nil
}

func signature(name string, def api.FunctionDefinition) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, t := range def.ParamTypes() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteByte(')')
	for i, t := range def.ResultTypes() {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
	return b.String()
}

func encodeArgs(types []api.ValueType, args []string) ([]uint64, error) {
	if len(types) != len(args) {
		return nil, fmt.Errorf("want %d arguments, got %d", len(types), len(args))
	}
	params := make([]uint64, len(args))
	for i, arg := range args {
		switch types[i] {
		case api.ValueTypeI32:
			n, err := strconv.ParseInt(arg, 0, 32)
			if err != nil {
				return nil, err
			}
			params[i] = api.EncodeI32(int32(n))
		case api.ValueTypeI64:
			n, err := strconv.ParseInt(arg, 0, 64)
			if err != nil {
				return nil, err
			}
			params[i] = api.EncodeI64(n)
		case api.ValueTypeF32:
			f, err := strconv.ParseFloat(arg, 32)
			if err != nil {
				return nil, err
			}
			params[i] = api.EncodeF32(float32(f))
		case api.ValueTypeF64:
			f, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, err
			}
			params[i] = api.EncodeF64(f)
		default:
			return nil, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(types[i]))
		}
	}
	return params, nil
}

func decodeResults(types []api.ValueType, results []uint64) string {
	strs := make([]string, len(results))
	for i, r := range results {
		switch types[i] {
		case api.ValueTypeI32:
			strs[i] = strconv.FormatInt(int64(api.DecodeI32(r)), 10)
		case api.ValueTypeF32:
			strs[i] = strconv.FormatFloat(float64(api.DecodeF32(r)), 'g', -1, 32)
		case api.ValueTypeF64:
			strs[i] = strconv.FormatFloat(api.DecodeF64(r), 'g', -1, 64)
		default:
			strs[i] = strconv.FormatInt(int64(r), 10)
		}
	}
	return strings.Join(strs, ", ")
}
