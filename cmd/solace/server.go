package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/solace/internal/api"
	"github.com/kalambet/solace/internal/assessment"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the solace server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(host, withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show solace server and store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
	startCmd.Flags().Bool("mcp", false, "also serve the assistant tools over MCP on stdio")
}

func runServer(host string, withMCP bool) error {
	fmt.Fprintf(os.Stderr, "solace version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := openProfiles(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}
	defer func() {
		if err := profiles.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing profile store: %v\n", err)
		}
	}()
	slog.Info("profile store ready", "mode", profiles.Mode())

	deps := api.Deps{
		Profiles: profiles,
		Token:    cfg.Server.APIToken,
		Logger:   logger,
	}
	if migrator, err := openMigrator(cfg, profiles, logger); err != nil {
		slog.Warn("migration endpoint disabled", "error", err)
	} else {
		deps.Migrator = migrator
	}
	if cfg.Server.APIToken == "" {
		slog.Warn("API bearer token not set; /api routes are unauthenticated")
	}

	addr := net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Profiles:  profiles,
			Assistant: assessment.New(profiles, nil, logger),
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "solace listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	printStatus("Store mode", "%s", cfg.Store.Mode)
	switch cfg.Store.Mode {
	case "direct":
		printStatus("Database", "%s", redactDSN(cfg.Store.DSN))
	case "http":
		printStatus("Remote", "%s", cfg.Store.RemoteURL)
	}
	printStatus("Local store", "%s", cfg.Store.LocalPath)

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		printStatus("Server", "running at %s", client.baseURL)
	} else {
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	}
	return nil
}
