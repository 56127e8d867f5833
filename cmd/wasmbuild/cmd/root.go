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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wasmbuild/wasmbuild/internal/datadir"
	"github.com/wasmbuild/wasmbuild/internal/httplog"
	"github.com/wasmbuild/wasmbuild/internal/wasmdebug"
	"github.com/wasmbuild/wasmbuild/wasm/fetch"
	"github.com/wasmbuild/wasmbuild/wasm/wasmcache"
)

type runFunction func(cmd *Command, args []string) error

func mkRunE(c *Command, f runFunction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c.Command = cmd
		return f(c, args)
	}
}

// newRootCmd creates the base command when called without any subcommands
func newRootCmd() *Command {
	cmd := &cobra.Command{
		Use:   "wasmbuild",
		Short: "wasmbuild loads and inspects Wasm artifacts.",
		Long: `wasmbuild loads Wasm artifacts the same way generated bindings do:
exactly once, from a local file or over HTTP, with retries, an optional
local cache and optional decompression.

Downloaded artifacts are cached in a per-user data directory, which can
be overridden with WASMBUILD_DATA_DIR. Run 'wasmbuild cache dir' to see
where it is.

The WASMBUILD_DEBUG environment variable holds a comma-separated list
of debug settings:

	http           log each HTTP request and response as JSON
	nocache        do not use the local cache
	maxretries=N   retry failed downloads N times (default 5)
	timeout=D      time limit for each HTTP request, such as 30s`,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &Command{Command: cmd, root: cmd}

	subCommands := []*cobra.Command{
		newCacheCmd(c),
		newLoadCmd(c),
		newVersionCmd(c),
	}

	addGlobalFlags(cmd.PersistentFlags())
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c.Command = cmd
		return c.setup()
	}

	for _, sub := range subCommands {
		cmd.AddCommand(sub)
	}

	return c
}

// Main runs the wasmbuild tool and returns the code for passing to os.Exit.
func Main() int {
	err := mainErr(context.Background(), os.Args[1:])
	if err != nil {
		if err != ErrPrintedError {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func mainErr(ctx context.Context, args []string) error {
	cmd, err := New(args)
	if err != nil {
		return err
	}
	return cmd.Run(ctx)
}

type Command struct {
	// The currently active command.
	*cobra.Command

	root *cobra.Command

	// logger is set up before any subcommand runs.
	logger *slog.Logger

	hasErr bool
}

type errWriter Command

func (w *errWriter) Write(b []byte) (int, error) {
	c := (*Command)(w)
	c.hasErr = true
	return c.Command.OutOrStderr().Write(b)
}

// Stderr returns a writer that should be used for error messages.
func (c *Command) Stderr() io.Writer {
	return (*errWriter)(c)
}

func (c *Command) SetOutput(w io.Writer) {
	c.root.SetOutput(w)
}

// ErrPrintedError indicates error messages have been printed to stderr.
var ErrPrintedError = errors.New("terminating because of errors")

func (c *Command) Run(ctx context.Context) error {
	if err := c.root.ExecuteContext(ctx); err != nil {
		return err
	}
	if c.hasErr {
		return ErrPrintedError
	}
	return nil
}

func New(args []string) (*Command, error) {
	cmd := newRootCmd()
	cmd.root.SetArgs(args)
	return cmd, nil
}

// setup reads WASMBUILD_DEBUG and configures logging.
func (c *Command) setup() error {
	if err := wasmdebug.Init(); err != nil {
		return err
	}
	level := log.InfoLevel
	if flagVerbose.Bool(c) {
		level = log.DebugLevel
	}
	c.logger = slog.New(log.NewWithOptions(c.Command.OutOrStderr(), log.Options{
		Prefix: "wasmbuild",
		Level:  level,
	}))
	return nil
}

// Logger returns the logger for the running command.
func (c *Command) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// httpClient returns the client used for downloads, honoring the
// http and timeout debug settings.
func (c *Command) httpClient() *http.Client {
	transport := http.DefaultTransport
	if wasmdebug.Flags.HTTP {
		transport = httplog.Transport(&httplog.TransportConfig{
			Logger: httplog.SlogLogger{
				Logger: slog.New(slog.NewJSONHandler(c.Command.OutOrStderr(), nil)),
			},
			Transport: transport,
		})
	}
	return &http.Client{
		Transport: transport,
		Timeout:   wasmdebug.Flags.Timeout,
	}
}

func (c *Command) fetcher() *fetch.Fetcher {
	maxRetries := wasmdebug.Flags.MaxRetries
	if maxRetries == 0 {
		// fetch.Config treats zero as "use the default".
		maxRetries = -1
	}
	return fetch.New(&fetch.Config{
		Client:     c.httpClient(),
		MaxRetries: maxRetries,
		Logger:     c.Logger(),
	})
}

func (c *Command) store() *wasmcache.Store {
	return wasmcache.New(&wasmcache.Config{
		DataDir: datadir.HostDir,
		Fetcher: c.fetcher(),
		Logger:  c.Logger(),
	})
}
