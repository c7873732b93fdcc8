// Package ipctest builds synthetic engine reply buffers for tests.
//
// Only the external engine produces reply buffers in production; tests use
// these builders to exercise the decoder and the dispatcher without a live
// engine.
package ipctest

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/rweijnen/everything-mcp/internal/ipc"
)

// BasicItem is one record in a synthetic basic-layout reply.
type BasicItem struct {
	Flags uint32
	Name  string
	Path  string
}

// ExtendedItem is one record in a synthetic extended-layout reply. Only the
// fields selected by the reply's metadata mask are written to the buffer.
type ExtendedItem struct {
	Flags uint32

	Name             string
	Path             string
	FullPath         string
	Extension        string
	FileListFileName string

	Size int64

	// Timestamps are raw FILETIME tick counts; zero or negative encodes
	// "unknown".
	DateCreated         int64
	DateModified        int64
	DateAccessed        int64
	DateRun             int64
	DateRecentlyChanged int64

	Attributes uint32
	RunCount   uint32
}

// BasicReply assembles a basic-layout reply buffer. Strings are appended
// after the item array and referenced by buffer-relative offsets, matching
// the engine's layout.
func BasicReply(totFolders, totFiles, totItems, offset uint32, items []BasicItem) []byte {
	le := binary.LittleEndian
	headerSize := 28
	itemsSize := len(items) * 12

	var strs []byte
	type itemOffsets struct{ name, path uint32 }
	offsets := make([]itemOffsets, len(items))
	base := uint32(headerSize + itemsSize)
	for i, it := range items {
		offsets[i].name = base + uint32(len(strs))
		strs = appendUTF16Z(strs, it.Name)
		offsets[i].path = base + uint32(len(strs))
		strs = appendUTF16Z(strs, it.Path)
	}

	buf := make([]byte, headerSize+itemsSize+len(strs))
	le.PutUint32(buf[0:], totFolders)
	le.PutUint32(buf[4:], totFiles)
	le.PutUint32(buf[8:], totItems)
	le.PutUint32(buf[12:], countFlagged(items, true))
	le.PutUint32(buf[16:], countFlagged(items, false))
	le.PutUint32(buf[20:], uint32(len(items)))
	le.PutUint32(buf[24:], offset)

	for i, it := range items {
		p := headerSize + i*12
		le.PutUint32(buf[p:], it.Flags)
		le.PutUint32(buf[p+4:], offsets[i].name)
		le.PutUint32(buf[p+8:], offsets[i].path)
	}
	copy(buf[headerSize+itemsSize:], strs)
	return buf
}

// ExtendedReply assembles an extended-layout reply buffer with per-item data
// blocks in mask bit order.
func ExtendedReply(totItems, offset uint32, mask ipc.RequestFlags, sort ipc.SortType, items []ExtendedItem) []byte {
	le := binary.LittleEndian
	headerSize := 20
	itemsSize := len(items) * 8

	var data []byte
	dataOffsets := make([]uint32, len(items))
	base := uint32(headerSize + itemsSize)
	for i, it := range items {
		dataOffsets[i] = base + uint32(len(data))
		data = appendItemData(data, mask, it)
	}

	buf := make([]byte, headerSize+itemsSize+len(data))
	le.PutUint32(buf[0:], totItems)
	le.PutUint32(buf[4:], uint32(len(items)))
	le.PutUint32(buf[8:], offset)
	le.PutUint32(buf[12:], uint32(mask))
	le.PutUint32(buf[16:], uint32(sort))

	for i, it := range items {
		p := headerSize + i*8
		le.PutUint32(buf[p:], it.Flags)
		le.PutUint32(buf[p+4:], dataOffsets[i])
	}
	copy(buf[headerSize+itemsSize:], data)
	return buf
}

// fieldOrder mirrors the ascending bit order the protocol mandates.
var fieldOrder = []ipc.RequestFlags{
	ipc.RequestName,
	ipc.RequestPath,
	ipc.RequestFullPathAndName,
	ipc.RequestExtension,
	ipc.RequestSize,
	ipc.RequestDateCreated,
	ipc.RequestDateModified,
	ipc.RequestDateAccessed,
	ipc.RequestAttributes,
	ipc.RequestFileListFileName,
	ipc.RequestRunCount,
	ipc.RequestDateRun,
	ipc.RequestDateRecentlyChanged,
}

func appendItemData(data []byte, mask ipc.RequestFlags, it ExtendedItem) []byte {
	for _, field := range fieldOrder {
		if mask&field == 0 {
			continue
		}
		switch field {
		case ipc.RequestName:
			data = appendLenPrefixed(data, it.Name)
		case ipc.RequestPath:
			data = appendLenPrefixed(data, it.Path)
		case ipc.RequestFullPathAndName:
			data = appendLenPrefixed(data, it.FullPath)
		case ipc.RequestExtension:
			data = appendLenPrefixed(data, it.Extension)
		case ipc.RequestFileListFileName:
			data = appendLenPrefixed(data, it.FileListFileName)
		case ipc.RequestSize:
			data = appendInt64(data, it.Size)
		case ipc.RequestDateCreated:
			data = appendInt64(data, it.DateCreated)
		case ipc.RequestDateModified:
			data = appendInt64(data, it.DateModified)
		case ipc.RequestDateAccessed:
			data = appendInt64(data, it.DateAccessed)
		case ipc.RequestDateRun:
			data = appendInt64(data, it.DateRun)
		case ipc.RequestDateRecentlyChanged:
			data = appendInt64(data, it.DateRecentlyChanged)
		case ipc.RequestAttributes:
			data = appendUint32(data, it.Attributes)
		case ipc.RequestRunCount:
			data = appendUint32(data, it.RunCount)
		}
	}
	return data
}

func appendUTF16Z(b []byte, s string) []byte {
	for _, u := range utf16.Encode([]rune(s)) {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return binary.LittleEndian.AppendUint16(b, 0)
}

func appendLenPrefixed(b []byte, s string) []byte {
	units := utf16.Encode([]rune(s))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(units)))
	for _, u := range units {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return binary.LittleEndian.AppendUint16(b, 0)
}

func appendInt64(b []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(b, uint64(v))
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func countFlagged(items []BasicItem, folders bool) uint32 {
	var n uint32
	for _, it := range items {
		isFolder := it.Flags&ipc.ItemFolder != 0
		if isFolder == folders {
			n++
		}
	}
	return n
}
