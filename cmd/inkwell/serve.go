// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/internal/config"
	"github.com/inkwell-notes/inkwell/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inkwell host",
		Long:  "Load configuration, start the extension host, restore installed extensions, and serve the HTTP API.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.manager.LoadInstalled(ctx); err != nil {
		logger.Warn("restoring installed extensions", "error", err)
	}

	srv, err := server.New(server.Config{ListenAddr: cfg.Server.Listen}, server.Services{
		Lifecycle:     a.manager,
		Calls:         a.transport,
		Notes:         a.notes,
		Contributions: a.contributions,
		Resolver:      a.resolver,
	}, server.WithLogger(logger))
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
