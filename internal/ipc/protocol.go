// Package ipc implements the Everything engine's binary IPC wire format.
//
// The engine accepts search queries over WM_COPYDATA in two layouts: the
// basic layout (name and path only) and the extended layout (caller-selected
// metadata fields). Replies arrive asynchronously as WM_COPYDATA messages on
// a caller-provided window. All integers are little-endian; all text is
// UTF-16LE. This package is pure data transformation and performs no I/O.
package ipc

// COPYDATA tags carried in COPYDATASTRUCT.dwData.
const (
	// CopyDataQuery identifies a basic-layout query.
	CopyDataQuery uint32 = 1
	// CopyDataQuery2 identifies an extended-layout query.
	CopyDataQuery2 uint32 = 3
	// CopyDataReply is the tag we ask the engine to echo on reply messages.
	// The value is caller-chosen; replies are authenticated by sender window
	// handle, not by tag.
	CopyDataReply uint32 = 0
)

// MaxQueryLength is the protocol ceiling on query length in UTF-16 code
// units. Longer queries are rejected before any buffer is allocated.
const MaxQueryLength = 32000

// Fixed structure sizes on the wire.
const (
	basicQueryHeaderSize    = 20
	extendedQueryHeaderSize = 28
	basicReplyHeaderSize    = 28
	extendedReplyHeaderSize = 20
	basicItemSize           = 12
	extendedItemSize        = 8
)

// SearchFlags is the bitmask of matching behaviors in a query header.
type SearchFlags uint32

const (
	MatchCase         SearchFlags = 0x00000001
	MatchWholeWord    SearchFlags = 0x00000002
	MatchPath         SearchFlags = 0x00000004
	MatchRegex        SearchFlags = 0x00000008
	MatchDiacritics   SearchFlags = 0x00000010
	MatchPrefix       SearchFlags = 0x00000020
	MatchSuffix       SearchFlags = 0x00000040
	IgnorePunctuation SearchFlags = 0x00000080
	IgnoreWhitespace  SearchFlags = 0x00000100
)

// RequestFlags selects the metadata fields returned by an extended query.
// A zero mask selects the basic layout.
type RequestFlags uint32

const (
	RequestName                RequestFlags = 0x00000001
	RequestPath                RequestFlags = 0x00000002
	RequestFullPathAndName     RequestFlags = 0x00000004
	RequestExtension           RequestFlags = 0x00000008
	RequestSize                RequestFlags = 0x00000010
	RequestDateCreated         RequestFlags = 0x00000020
	RequestDateModified        RequestFlags = 0x00000040
	RequestDateAccessed        RequestFlags = 0x00000080
	RequestAttributes          RequestFlags = 0x00000100
	RequestFileListFileName    RequestFlags = 0x00000200
	RequestRunCount            RequestFlags = 0x00000400
	RequestDateRun             RequestFlags = 0x00000800
	RequestDateRecentlyChanged RequestFlags = 0x00001000
)

// fieldOrder enumerates metadata fields in ascending bit order. Extended
// reply data blocks carry requested fields in exactly this order.
var fieldOrder = []RequestFlags{
	RequestName,
	RequestPath,
	RequestFullPathAndName,
	RequestExtension,
	RequestSize,
	RequestDateCreated,
	RequestDateModified,
	RequestDateAccessed,
	RequestAttributes,
	RequestFileListFileName,
	RequestRunCount,
	RequestDateRun,
	RequestDateRecentlyChanged,
}

// RequestAllMetadata is every metadata field the protocol supports.
const RequestAllMetadata RequestFlags = RequestName | RequestPath |
	RequestFullPathAndName | RequestExtension | RequestSize |
	RequestDateCreated | RequestDateModified | RequestDateAccessed |
	RequestAttributes | RequestFileListFileName | RequestRunCount |
	RequestDateRun | RequestDateRecentlyChanged

// SortType selects the result ordering applied by the engine.
type SortType uint32

const (
	SortNameAscending          SortType = 1
	SortNameDescending         SortType = 2
	SortPathAscending          SortType = 3
	SortPathDescending         SortType = 4
	SortSizeAscending          SortType = 5
	SortSizeDescending         SortType = 6
	SortExtensionAscending     SortType = 7
	SortExtensionDescending    SortType = 8
	SortDateCreatedAscending   SortType = 11
	SortDateCreatedDescending  SortType = 12
	SortDateModifiedAscending  SortType = 13
	SortDateModifiedDescending SortType = 14
	SortRunCountAscending      SortType = 25
	SortRunCountDescending     SortType = 26
)

// Item flags in reply records.
const (
	// ItemFolder marks the record as a folder; files carry no flag.
	ItemFolder uint32 = 0x00000001
	// ItemDrive marks the record as a drive/volume root.
	ItemDrive uint32 = 0x00000002
)

// WMIPC is the window message used for single-word status exchanges
// (WM_USER). The status code rides in wParam; the reply is the LRESULT.
const WMIPC uint32 = 0x0400

// StatusCode is a single-word status request understood by the engine.
type StatusCode uint32

const (
	GetMajorVersion  StatusCode = 0
	GetMinorVersion  StatusCode = 1
	GetRevision      StatusCode = 2
	GetBuildNumber   StatusCode = 3
	GetTargetMachine StatusCode = 5

	IsDBLoaded StatusCode = 401
	IsDBBusy   StatusCode = 402
	IsAdmin    StatusCode = 403

	RebuildDB StatusCode = 405
	SaveDB    StatusCode = 407
)

// Target machine values returned for GetTargetMachine.
const (
	TargetMachineX86 uint64 = 1
	TargetMachineX64 uint64 = 2
	TargetMachineARM uint64 = 3
)

// TargetMachineString renders a GetTargetMachine reply for display.
func TargetMachineString(v uint64) string {
	switch v {
	case TargetMachineX86:
		return "x86"
	case TargetMachineX64:
		return "x64"
	case TargetMachineARM:
		return "arm"
	default:
		return "unknown"
	}
}
