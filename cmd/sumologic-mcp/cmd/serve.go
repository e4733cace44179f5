package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sumologic-mcp/internal/api"
	"github.com/sumologic-mcp/internal/mcpserver"
)

func serveCmd() *cobra.Command {
	var (
		useHTTP bool
		host    string
		port    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search tools over MCP (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcpserver.New(a.service, Version,
				mcpserver.WithMetrics(a.metrics),
				mcpserver.WithLogger(a.logger),
			)

			if !useHTTP {
				return srv.RunStdio(ctx)
			}

			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != "" {
				a.cfg.Server.Port = port
			}
			return serveHTTP(ctx, a, srv)
		},
	}

	cmd.Flags().BoolVar(&useHTTP, "http", false, "Serve the streamable HTTP transport instead of stdio")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host; overrides SERVER_HOST")
	cmd.Flags().StringVar(&port, "port", "", "HTTP listen port; overrides SERVER_PORT")

	return cmd
}

func serveHTTP(ctx context.Context, a *app, srv *mcpserver.Server) error {
	server := api.NewServer(&a.cfg.Server, srv.HTTPHandler(), api.WithVersion(Version))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("Server exited gracefully")
	return nil
}
