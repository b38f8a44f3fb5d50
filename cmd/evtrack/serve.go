package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/evtrack/internal/mcp"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve task lists to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			server := mcp.NewServer(mcp.Config{
				Service: a.svc,
				Version: version,
				Logger:  a.logger,
			})

			a.logger.Info("starting stdio transport", "task_lists", len(a.svc.List()))
			// Run blocks until stdin closes or ctx is canceled.
			if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("stdio server error", "error", err)
				return err
			}
			a.logger.Info("shutting down")
			return nil
		},
	}
}
