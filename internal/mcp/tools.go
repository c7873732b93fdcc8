package mcp

import (
	"github.com/rweijnen/everything-mcp/internal/ipc"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"the Everything search expression to execute"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 100"`
	Offset      int    `json:"offset,omitempty" jsonschema:"number of results to skip for paging"`
	MatchCase   bool   `json:"match_case,omitempty" jsonschema:"match case exactly"`
	WholeWord   bool   `json:"whole_word,omitempty" jsonschema:"match whole words only"`
	MatchPath   bool   `json:"match_path,omitempty" jsonschema:"match against the full path, not just the name"`
	Regex       bool   `json:"regex,omitempty" jsonschema:"treat the query as a regular expression"`
	Sort        string `json:"sort,omitempty" jsonschema:"sort order: name, -name, path, size, -size, date_modified, -date_modified, date_created, -date_created, run_count, -run_count"`
	Metadata    bool   `json:"metadata,omitempty" jsonschema:"include size, timestamps and attributes per result"`
	FoldersOnly bool   `json:"folders_only,omitempty" jsonschema:"return only folders"`
	FilesOnly   bool   `json:"files_only,omitempty" jsonschema:"return only files"`
}

// SearchByExtensionInput defines the input schema for search_by_extension.
type SearchByExtensionInput struct {
	Extensions []string `json:"extensions" jsonschema:"file extensions to match, with or without leading dot"`
	Query      string   `json:"query,omitempty" jsonschema:"extra search terms to narrow the match"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 100"`
	Metadata   bool     `json:"metadata,omitempty" jsonschema:"include size, timestamps and attributes per result"`
}

// SearchInFolderInput defines the input schema for search_in_folder.
type SearchInFolderInput struct {
	Folder   string `json:"folder" jsonschema:"folder whose subtree is searched"`
	Query    string `json:"query,omitempty" jsonschema:"search expression within the folder"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 100"`
	Metadata bool   `json:"metadata,omitempty" jsonschema:"include size, timestamps and attributes per result"`
}

// EngineStatusInput defines the (empty) input schema for engine_status.
type EngineStatusInput struct{}

// SearchResultOutput is one result in a tool reply.
type SearchResultOutput struct {
	Name         string  `json:"name" jsonschema:"file or folder name"`
	Path         string  `json:"path" jsonschema:"parent folder path"`
	FullPath     string  `json:"full_path" jsonschema:"complete path including the name"`
	IsFolder     bool    `json:"is_folder,omitempty" jsonschema:"true for folders"`
	Size         *int64  `json:"size,omitempty" jsonschema:"size in bytes, absent for folders and unknown sizes"`
	DateModified *string `json:"date_modified,omitempty" jsonschema:"last modification time, RFC 3339"`
	DateCreated  *string `json:"date_created,omitempty" jsonschema:"creation time, RFC 3339"`
	Attributes   *uint32 `json:"attributes,omitempty" jsonschema:"raw Windows file attribute bits"`
	RunCount     *uint32 `json:"run_count,omitempty" jsonschema:"times opened through Everything"`
}

// SearchOutput defines the output schema for the search tools.
type SearchOutput struct {
	Results    []SearchResultOutput `json:"results" jsonschema:"matching results in engine order"`
	TotalItems uint32               `json:"total_items" jsonschema:"total matches in the index, beyond this page"`
	Offset     uint32               `json:"offset" jsonschema:"index of the first returned result"`
	Degraded   int                  `json:"degraded,omitempty" jsonschema:"results returned with partial fields due to malformed reply data"`
}

// EngineStatusOutput defines the output schema for engine_status.
type EngineStatusOutput struct {
	Version       string `json:"version" jsonschema:"engine version, major.minor.revision.build"`
	TargetMachine string `json:"target_machine" jsonschema:"engine architecture: x86, x64 or arm"`
	DBLoaded      bool   `json:"db_loaded" jsonschema:"true when the index database is loaded"`
	DBBusy        bool   `json:"db_busy" jsonschema:"true while the engine is scanning or rebuilding"`
	IsAdmin       bool   `json:"is_admin" jsonschema:"true when the engine runs elevated"`
}

func parseSort(s string) (ipc.SortType, error) {
	return ipc.ParseSort(s)
}

// metadataMask is the field set requested when a tool asks for metadata.
const metadataMask = ipc.RequestName | ipc.RequestPath | ipc.RequestSize |
	ipc.RequestDateCreated | ipc.RequestDateModified | ipc.RequestAttributes |
	ipc.RequestRunCount
