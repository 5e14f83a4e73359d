// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/internal/config"
)

func newExtensionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extension",
		Short: "Manage extensions",
		Long:  "List, install, and uninstall extensions against the local installation.",
	}

	cmd.AddCommand(
		newExtensionListCmd(),
		newExtensionInstallCmd(),
		newExtensionUninstallCmd(),
	)

	return cmd
}

// withApp loads config, assembles the stack, runs fn, and tears down.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	return fn(ctx, a)
}

func newExtensionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available and installed extensions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				installed, err := a.installed.List(ctx)
				if err != nil {
					return err
				}
				installedSet := make(map[string]bool, len(installed))
				for _, id := range installed {
					installedSet[id] = true
				}

				ids := a.manager.Available()
				sort.Strings(ids)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tVERSION\tINSTALLED")
				for _, id := range ids {
					mf, ok := a.manager.Manifest(id)
					if !ok {
						continue
					}
					state := ""
					if installedSet[id] {
						state = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mf.ID, mf.Name, mf.Version, state)
				}
				return w.Flush()
			})
		},
	}
}

func newExtensionInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [id]",
		Short: "Install an extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Install(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Installed extension %q\n", args[0])
				return err
			})
		},
	}
}

func newExtensionUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [id]",
		Short: "Uninstall an extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Uninstall(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled extension %q\n", args[0])
				return err
			})
		},
	}
}
