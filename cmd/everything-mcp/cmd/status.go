package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rweijnen/everything-mcp/internal/client"
	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/lifecycle"
	"github.com/rweijnen/everything-mcp/internal/transport"
	"github.com/rweijnen/everything-mcp/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var start bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Everything engine status",
		Long: `Display the engine's version, architecture and index state.

When the engine is not running, reports whether an installation was found.
Pass --start to launch the engine and wait for it to become ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput, start)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&start, "start", false, "Start the engine if it is not running")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput, start bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	locator, err := transport.NewLocator(cfg.Engine.WindowClass, cfg.Engine.Instance)
	if err != nil {
		return err
	}
	manager := lifecycle.NewEngineManager(locator)

	if start {
		if err := manager.Start(ctx); err != nil {
			return err
		}
	}

	cli, err := client.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	st, err := cli.Status(ctx)
	if err != nil {
		if stderrors.Is(err, errors.ErrEngineNotRunning) {
			return reportEngineDown(cmd, manager, jsonOutput)
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	ui.NewRenderer(cmd.OutOrStdout(), noColor).Status(st)
	return nil
}

// reportEngineDown explains what was found instead of a running engine.
func reportEngineDown(cmd *cobra.Command, manager *lifecycle.EngineManager, jsonOutput bool) error {
	state := manager.State()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	out := cmd.OutOrStdout()
	if state.Installed {
		fmt.Fprintf(out, "Everything is installed (%s) but not running.\n", state.InstalledPath)
		fmt.Fprintln(out, "Run 'everything-mcp status --start' to launch it.")
	} else {
		fmt.Fprintln(out, "Everything is not installed.")
		fmt.Fprintln(out, "Install it from https://www.voidtools.com and retry.")
	}
	return nil
}
