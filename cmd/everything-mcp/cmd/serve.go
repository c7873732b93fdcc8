package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rweijnen/everything-mcp/internal/client"
	"github.com/rweijnen/everything-mcp/internal/logging"
	"github.com/rweijnen/everything-mcp/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Start the MCP server and serve search tools to AI clients.

The server speaks JSON-RPC over stdio; register it in your MCP host's
configuration as a stdio server. All logging goes to file, never stdout.

Examples:
  everything-mcp serve
  everything-mcp serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	return cmd
}

func runServe(ctx context.Context, transport string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Stdout belongs to JSON-RPC from here on; log to file only.
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupMCPMode(level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	// One server per engine instance. A second copy would steal replies
	// addressed to the first, so refuse to start.
	lock, err := acquireServeLock(cfg.Engine.Instance)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	cli, err := client.New(cfg, slog.Default())
	if err != nil {
		slog.Error("failed to initialize IPC client", slog.String("error", err.Error()))
		return err
	}

	srv, err := mcp.NewServer(cli, cfg, slog.Default())
	if err != nil {
		_ = cli.Close()
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, transport)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown requested")
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	snap := cli.Metrics()
	slog.Info("session metrics",
		slog.Int64("total_queries", snap.TotalQueries),
		slog.Int64("failed_queries", snap.FailedQueries),
		slog.Int64("cache_hits", snap.CacheHits),
		slog.Int64("zero_results", snap.ZeroResultCount),
		slog.Int64("exact_repeats", snap.ExactRepeatCount),
		slog.Duration("uptime", snap.Uptime))
	return nil
}

// acquireServeLock takes the per-instance single-run lock without blocking.
func acquireServeLock(instance string) (*flock.Flock, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".everything-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	name := "serve.lock"
	if instance != "" {
		name = "serve-" + instance + ".lock"
	}
	lock := flock.New(filepath.Join(dir, name))

	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire server lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another everything-mcp server is already running (lock: %s)", lock.Path())
	}
	return lock, nil
}
