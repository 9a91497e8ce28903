/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * kinoreader
 * Copyright (C) 2026 Joan Charmant
 *
 * kinoreader is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * kinoreader is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with kinoreader.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jcharmant/kinoreader/internal/cli"
	"github.com/jcharmant/kinoreader/internal/config"
	"github.com/jcharmant/kinoreader/internal/videofs"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "kinoreader",
	Short:         "Seekable, positional video frame reader.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var presetFlag string

func main() {
	// .env is optional: local development convenience for AWS_* vars,
	// the same load-if-present pattern the teacher's camera profiles use
	// for per-machine overrides.
	_ = godotenv.Load()

	env, err := config.InitEnvironment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(env.SettingsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cliEnv := &cli.Env{
		Out:      os.Stdout,
		Err:      os.Stderr,
		Config:   cfg,
		Resolver: videofs.NewResolver(cfg.DownloadCache, cfg.S3Region),
	}
	if cliEnv.Resolver != nil && cfg.DownloadCache == "" {
		cliEnv.Resolver = videofs.NewResolver(env.TmpDir+"/kinoreader-downloads", cfg.S3Region)
	}

	cli.Version = resolveVersion()
	rootCmd.PersistentFlags().StringVar(&presetFlag, "preset", "", "named decoding preset from settings.yml")
	rootCmd.AddCommand(infoCmd(cliEnv))
	rootCmd.AddCommand(thumbsCmd(cliEnv))
	rootCmd.AddCommand(playCmd(cliEnv))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func infoCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Print derived video information for a file or s3:// object.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Info(env, args[0], presetFlag)
		},
	}
}

func thumbsCmd(env *cli.Env) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "thumbs <path>",
		Short: "Extract evenly spaced thumbnails from a video.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Thumbs(env, args[0], presetFlag, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of thumbnails to extract")
	return cmd
}

func playCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "play <path>",
		Short: "Play a video in an SDL2 window.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Play(env, args[0], presetFlag)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print kinoreader's version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cli.Version)
			return nil
		},
	}
}

func resolveVersion() string {
	if version != "" && version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
