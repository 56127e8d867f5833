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

	"github.com/spf13/cobra"

	"github.com/wasmbuild/wasmbuild/wasm/locator"
)

func newCacheCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache <cmd>",
		Short: "inspect and clean the local artifact cache",
		Long: `Cache provides subcommands for the local cache of downloaded
Wasm artifacts.

Each entry is named after the SHA-256 digest of the URL it was
downloaded from and holds the decompressed artifact. Entries are never
invalidated automatically.
`,
		RunE: mkRunE(c, func(cmd *Command, args []string) error {
			stderr := cmd.Stderr()
			if len(args) == 0 {
				fmt.Fprintln(stderr, "cache must be run as one of its subcommands")
			} else {
				fmt.Fprintf(stderr, "cache must be run as one of its subcommands: unknown subcommand %q\n", args[0])
			}
			fmt.Fprintln(stderr, "Run 'wasmbuild help cache' for known subcommands.")
			return ErrPrintedError
		}),
	}
	cmd.AddCommand(
		newCacheDirCmd(c),
		newCachePathCmd(c),
		newCacheCleanCmd(c),
	)
	return cmd
}

func newCacheDirCmd(c *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "print the cache directory",
		Args:  cobra.NoArgs,
		RunE: mkRunE(c, func(cmd *Command, args []string) error {
			dir, err := cmd.store().Dir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		}),
	}
}

func newCachePathCmd(c *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "path <url>",
		Short: "print the cache file used for an artifact URL",
		Long: `Path prints the name of the cache file that holds, or would hold,
the artifact downloaded from the given URL. The file may not exist.
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, func(cmd *Command, args []string) error {
			u, err := locator.Parse(args[0])
			if err != nil {
				return err
			}
			if locator.Classify(u) != locator.Network {
				return fmt.Errorf("%s is not an http or https URL", u.Redacted())
			}
			file, err := cmd.store().Path(u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), file)
			return nil
		}),
	}
}

func newCacheCleanCmd(c *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "remove all cached artifacts",
		Args:  cobra.NoArgs,
		RunE: mkRunE(c, func(cmd *Command, args []string) error {
			n, err := cmd.store().Clean()
			if err != nil {
				fmt.Fprintln(cmd.Stderr(), err)
			}
			cmd.Logger().Info("removed cache entries", "count", n)
			return nil
		}),
	}
}
