package ipc

import (
	"strings"
	"time"
)

// ResultRecord is one decoded result. Optional fields are nil unless the
// originating request's metadata mask included them; a basic-layout reply
// never populates them.
type ResultRecord struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`

	IsFolder bool `json:"is_folder"`
	IsDrive  bool `json:"is_drive"`

	Size                *int64     `json:"size,omitempty"`
	DateCreated         *time.Time `json:"date_created,omitempty"`
	DateModified        *time.Time `json:"date_modified,omitempty"`
	DateAccessed        *time.Time `json:"date_accessed,omitempty"`
	Attributes          *uint32    `json:"attributes,omitempty"`
	FileListFileName    *string    `json:"file_list_file_name,omitempty"`
	RunCount            *uint32    `json:"run_count,omitempty"`
	DateRun             *time.Time `json:"date_run,omitempty"`
	DateRecentlyChanged *time.Time `json:"date_recently_changed,omitempty"`
	Extension           *string    `json:"extension,omitempty"`
}

// IsFile reports whether the record is a file. Always the complement of
// IsFolder.
func (r *ResultRecord) IsFile() bool {
	return !r.IsFolder
}

// ReplyPage is one decoded reply buffer: the page of records plus the
// engine's totals for the whole result set.
type ReplyPage struct {
	// TotalItems is the size of the full result set, not just this page.
	TotalItems uint32
	// TotalFolders and TotalFiles are only reported by the basic layout.
	TotalFolders uint32
	TotalFiles   uint32

	// Offset is the page offset echoed by the engine.
	Offset uint32

	// Request is the metadata mask the reply carries (extended layout only).
	Request RequestFlags
	// Sort is the ordering echoed by the engine (extended layout only).
	Sort SortType

	Records []ResultRecord

	// Malformed counts items whose embedded offsets or lengths fell outside
	// the buffer and were returned with empty/absent values instead.
	Malformed int
}

// joinWindowsPath derives a full path from a directory and name using the
// engine's native separator, independent of the host OS.
func joinWindowsPath(dir, name string) string {
	if dir == "" {
		return name
	}
	if name == "" {
		return dir
	}
	if strings.HasSuffix(dir, `\`) {
		return dir + name
	}
	return dir + `\` + name
}
