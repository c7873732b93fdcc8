package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rweijnen/everything-mcp/internal/client"
	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	offset    int
	matchCase bool
	wholeWord bool
	matchPath bool
	regex     bool
	sort      string
	metadata  bool
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search files and folders by name",
		Long: `Search the Everything index.

The query uses Everything's search syntax: wildcards, boolean operators,
and filters like ext:, size:, dm: all work.

Examples:
  everything-mcp search "*.pdf"
  everything-mcp search "ext:go;md readme" --limit 20
  everything-mcp search "invoice" --sort -date_modified --meta
  everything-mcp search "^report_\d+" --regex --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Skip this many results")
	cmd.Flags().BoolVarP(&opts.matchCase, "case", "c", false, "Match case")
	cmd.Flags().BoolVarP(&opts.wholeWord, "whole-word", "w", false, "Match whole words")
	cmd.Flags().BoolVarP(&opts.matchPath, "path", "p", false, "Match against the full path")
	cmd.Flags().BoolVarP(&opts.regex, "regex", "r", false, "Treat the query as a regular expression")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "Sort order: name, -name, size, -size, date_modified, ...")
	cmd.Flags().BoolVarP(&opts.metadata, "meta", "m", false, "Include size, dates and attributes")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sort, err := ipc.ParseSort(opts.sort)
	if err != nil {
		return err
	}

	cli, err := client.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	searchOpts := client.SearchOptions{
		MatchCase:      opts.matchCase,
		MatchWholeWord: opts.wholeWord,
		MatchPath:      opts.matchPath,
		Regex:          opts.regex,
		Offset:         uint32(opts.offset),
		Sort:           sort,
	}
	if opts.limit > 0 {
		searchOpts.MaxResults = uint32(opts.limit)
	}
	if opts.metadata {
		searchOpts.Metadata = ipc.RequestName | ipc.RequestPath | ipc.RequestSize |
			ipc.RequestDateModified | ipc.RequestDateCreated | ipc.RequestAttributes
	}

	page, err := cli.Search(ctx, query, searchOpts)
	if err != nil {
		ui.NewRenderer(cmd.ErrOrStderr(), noColor).Error(err)
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	ui.NewRenderer(cmd.OutOrStdout(), noColor).Results(page)
	return nil
}
