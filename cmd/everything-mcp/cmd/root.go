// Package cmd provides the CLI commands for everything-mcp.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rweijnen/everything-mcp/internal/config"
	"github.com/rweijnen/everything-mcp/internal/logging"
	"github.com/rweijnen/everything-mcp/internal/profiling"
	"github.com/rweijnen/everything-mcp/pkg/version"
)

var (
	configPath string
	debugMode  bool
	noColor    bool

	profileCPU   string
	profileMem   string
	profileTrace string

	loggingCleanup func()
	cpuCleanup     func()
	traceCleanup   func()
)

// NewRootCmd creates the root command for the everything-mcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "everything-mcp",
		Short: "MCP server for the Everything search engine",
		Long: `everything-mcp exposes voidtools Everything - instant filename search
over the entire machine - to AI assistants via the Model Context Protocol,
and to humans via CLI search commands.

Run 'everything-mcp' with no arguments to start the MCP server on stdio.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// Smart default: an MCP host that just executes the binary
			// gets a stdio server without needing a subcommand.
			return runServe(cmd.Context(), "stdio")
		},
	}

	cmd.SetVersionTemplate("everything-mcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.everything-mcp/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.everything-mcp/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts CPU/trace profiling and debug logging if flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileCPU != "" {
		cleanup, err := profiling.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		cpuCleanup = cleanup
	}

	if profileTrace != "" {
		cleanup, err := profiling.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
				cpuCleanup = nil
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
		traceCleanup = cleanup
	}

	return nil
}

// stopProfilingAndLogging stops profiling, writes the memory profile if
// requested, and shuts down debug logging.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiling.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
