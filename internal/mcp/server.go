// Package mcp implements the Model Context Protocol server for
// everything-mcp. It bridges AI clients with the Everything search engine
// through the IPC client facade.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rweijnen/everything-mcp/internal/client"
	"github.com/rweijnen/everything-mcp/internal/config"
	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/pkg/version"
)

// SearchClient is the facade surface the server depends on. *client.Client
// satisfies it; tests substitute a fake.
type SearchClient interface {
	Search(ctx context.Context, query string, opts client.SearchOptions) (*ipc.ReplyPage, error)
	SearchByExtension(ctx context.Context, extensions []string, extra string, opts client.SearchOptions) (*ipc.ReplyPage, error)
	SearchInFolder(ctx context.Context, folder, query string, opts client.SearchOptions) (*ipc.ReplyPage, error)
	Status(ctx context.Context) (*client.EngineStatus, error)
	Close() error
}

// Server is the MCP server. It registers the search tools and serves them
// over a client-selected transport.
type Server struct {
	mcp    *mcp.Server
	client SearchClient
	config *config.Config
	logger *slog.Logger
}

// NewServer creates an MCP server over the given search client.
func NewServer(cli SearchClient, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cli == nil {
		return nil, errors.InternalError("search client is required", nil)
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client: cli,
		config: cfg,
		logger: logger.With("component", "mcp"),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "everything-mcp",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search every indexed file and folder on this machine instantly by name. Supports the full Everything query syntax (wildcards, boolean operators, size:/date: filters), regex, sorting and paging.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_by_extension",
		Description: "Find files with specific extensions, optionally narrowed by extra search terms. Use for questions like 'find all PDFs mentioning budget'.",
	}, s.searchByExtensionHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_in_folder",
		Description: "Search within one folder subtree only. Use when the user scopes a question to a directory.",
	}, s.searchInFolderHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "engine_status",
		Description: "Report the Everything engine's version, architecture and index state. Use to diagnose empty or failing searches.",
	}, s.engineStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 4))
}

func (s *Server) searchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}
	if input.FoldersOnly && input.FilesOnly {
		return nil, SearchOutput{}, NewInvalidParamsError("folders_only and files_only are mutually exclusive")
	}

	sort, err := parseSort(input.Sort)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	opts := client.SearchOptions{
		MatchCase:      input.MatchCase,
		MatchWholeWord: input.WholeWord,
		MatchPath:      input.MatchPath,
		Regex:          input.Regex,
		Offset:         uint32(input.Offset),
		Sort:           sort,
	}
	if input.Limit > 0 {
		opts.MaxResults = uint32(input.Limit)
	}
	if input.Metadata {
		opts.Metadata = metadataMask
	}

	query := input.Query
	switch {
	case input.FoldersOnly:
		query = "folder: " + query
	case input.FilesOnly:
		query = "file: " + query
	}

	start := time.Now()
	page, err := s.client.Search(ctx, query, opts)
	if err != nil {
		s.logger.Warn("search failed", "query", query, "error", err)
		return nil, SearchOutput{}, MapError(err)
	}
	s.logger.Debug("search served",
		"query", query,
		"items", len(page.Records),
		"duration", time.Since(start))

	out := pageToOutput(page)
	return textResult(FormatSearchResults(input.Query, out)), out, nil
}

func (s *Server) searchByExtensionHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchByExtensionInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if len(input.Extensions) == 0 {
		return nil, SearchOutput{}, NewInvalidParamsError("extensions parameter is required")
	}

	opts := client.SearchOptions{}
	if input.Limit > 0 {
		opts.MaxResults = uint32(input.Limit)
	}
	if input.Metadata {
		opts.Metadata = metadataMask
	}

	page, err := s.client.SearchByExtension(ctx, input.Extensions, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := pageToOutput(page)
	label := fmt.Sprintf("ext: %v %s", input.Extensions, input.Query)
	return textResult(FormatSearchResults(label, out)), out, nil
}

func (s *Server) searchInFolderHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInFolderInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Folder == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("folder parameter is required")
	}

	opts := client.SearchOptions{}
	if input.Limit > 0 {
		opts.MaxResults = uint32(input.Limit)
	}
	if input.Metadata {
		opts.Metadata = metadataMask
	}

	page, err := s.client.SearchInFolder(ctx, input.Folder, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := pageToOutput(page)
	label := input.Folder
	if input.Query != "" {
		label += " " + input.Query
	}
	return textResult(FormatSearchResults(label, out)), out, nil
}

func (s *Server) engineStatusHandler(ctx context.Context, req *mcp.CallToolRequest, input EngineStatusInput) (
	*mcp.CallToolResult,
	EngineStatusOutput,
	error,
) {
	st, err := s.client.Status(ctx)
	if err != nil {
		return nil, EngineStatusOutput{}, MapError(err)
	}

	out := EngineStatusOutput{
		Version:       st.Version,
		TargetMachine: st.TargetMachine,
		DBLoaded:      st.DBLoaded,
		DBBusy:        st.DBBusy,
		IsAdmin:       st.IsAdmin,
	}
	return textResult(FormatEngineStatus(out)), out, nil
}

// Serve runs the server until the context is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases the underlying search client.
func (s *Server) Close() error {
	return s.client.Close()
}

// pageToOutput converts a decoded reply page to the tool output schema.
func pageToOutput(page *ipc.ReplyPage) SearchOutput {
	out := SearchOutput{
		TotalItems: page.TotalItems,
		Offset:     page.Offset,
		Degraded:   page.Malformed,
		Results:    make([]SearchResultOutput, 0, len(page.Records)),
	}
	for _, rec := range page.Records {
		r := SearchResultOutput{
			Name:       rec.Name,
			Path:       rec.Path,
			FullPath:   rec.FullPath,
			IsFolder:   rec.IsFolder,
			Size:       rec.Size,
			Attributes: rec.Attributes,
			RunCount:   rec.RunCount,
		}
		if rec.DateModified != nil {
			s := rec.DateModified.Format(time.RFC3339)
			r.DateModified = &s
		}
		if rec.DateCreated != nil {
			s := rec.DateCreated.Format(time.RFC3339)
			r.DateCreated = &s
		}
		out.Results = append(out.Results, r)
	}
	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
