// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/toeirei/inbound/internal/i18n"
	"github.com/toeirei/inbound/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: i18n.T("cli.serve_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}
	cmd.Flags().String("server.listen", ":8080", "Address the inbox server listens on")
	cmd.Flags().Int("server.workers", 4, "Number of delivery workers")
	cmd.Flags().Int("server.queue_size", 256, "Deliveries buffered before answering 503")
	cmd.Flags().Bool("debug.ap_log_unknown", false, "Record unhandled and unknown activities")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p := buildPipeline(appConfig, store, nil)
	pool := server.NewPool(p.receiver, appConfig.Server.Workers, appConfig.Server.QueueSize)
	srv := server.New(server.Config{
		Listen:       appConfig.Server.Listen,
		MaxBodyBytes: appConfig.Server.MaxBodyBytes,
	}, pool, store)

	fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.serve_listening", appConfig.Server.Listen, appConfig.Server.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return p.upgrades.Run(gctx) })
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	return g.Wait()
}
