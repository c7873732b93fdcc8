package ipc

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

// Decode parses a reply buffer using the layout the originating request
// selected. The buffer comes from an external process and is treated as
// untrusted: every embedded offset and length is bounds-checked, and an item
// that fails validation is returned with empty/absent values rather than
// failing the page.
func Decode(buf []byte, extended bool) (*ReplyPage, error) {
	if extended {
		return DecodeExtendedReply(buf)
	}
	return DecodeBasicReply(buf)
}

// DecodeBasicReply parses a basic-layout reply: a 28-byte header followed by
// packed {flags, name-offset, path-offset} records whose offsets point at
// NUL-terminated UTF-16 strings elsewhere in the same buffer.
func DecodeBasicReply(buf []byte) (*ReplyPage, error) {
	if len(buf) < basicReplyHeaderSize {
		return nil, malformed("basic reply truncated: %d bytes, header needs %d", len(buf), basicReplyHeaderSize)
	}

	le := binary.LittleEndian
	page := &ReplyPage{
		TotalFolders: le.Uint32(buf[0:]),
		TotalFiles:   le.Uint32(buf[4:]),
		TotalItems:   le.Uint32(buf[8:]),
		Offset:       le.Uint32(buf[24:]),
	}
	numItems := int(le.Uint32(buf[20:]))

	if numItems < 0 || basicReplyHeaderSize+numItems*basicItemSize > len(buf) {
		return nil, malformed("basic reply declares %d items, buffer holds %d bytes", numItems, len(buf))
	}

	page.Records = make([]ResultRecord, 0, numItems)
	for i := 0; i < numItems; i++ {
		base := basicReplyHeaderSize + i*basicItemSize
		flags := le.Uint32(buf[base:])
		nameOff := le.Uint32(buf[base+4:])
		pathOff := le.Uint32(buf[base+8:])

		rec := ResultRecord{
			IsFolder: flags&ItemFolder != 0,
			IsDrive:  flags&ItemDrive != 0,
		}

		name, okName := readUTF16Z(buf, nameOff)
		path, okPath := readUTF16Z(buf, pathOff)
		if !okName || !okPath {
			page.Malformed++
		}
		rec.Name = name
		rec.Path = path
		rec.FullPath = joinWindowsPath(path, name)

		page.Records = append(page.Records, rec)
	}

	return page, nil
}

// DecodeExtendedReply parses an extended-layout reply: a 20-byte header
// followed by {flags, data-offset} pairs; each data block carries the
// requested fields in ascending bit order of the reply's metadata mask.
func DecodeExtendedReply(buf []byte) (*ReplyPage, error) {
	if len(buf) < extendedReplyHeaderSize {
		return nil, malformed("extended reply truncated: %d bytes, header needs %d", len(buf), extendedReplyHeaderSize)
	}

	le := binary.LittleEndian
	page := &ReplyPage{
		TotalItems: le.Uint32(buf[0:]),
		Offset:     le.Uint32(buf[8:]),
		Request:    RequestFlags(le.Uint32(buf[12:])),
		Sort:       SortType(le.Uint32(buf[16:])),
	}
	numItems := int(le.Uint32(buf[4:]))

	if numItems < 0 || extendedReplyHeaderSize+numItems*extendedItemSize > len(buf) {
		return nil, malformed("extended reply declares %d items, buffer holds %d bytes", numItems, len(buf))
	}

	page.Records = make([]ResultRecord, 0, numItems)
	for i := 0; i < numItems; i++ {
		base := extendedReplyHeaderSize + i*extendedItemSize
		flags := le.Uint32(buf[base:])
		dataOff := le.Uint32(buf[base+4:])

		rec := ResultRecord{
			IsFolder: flags&ItemFolder != 0,
			IsDrive:  flags&ItemDrive != 0,
		}
		if !decodeItemData(buf, dataOff, page.Request, &rec) {
			page.Malformed++
		}
		if rec.FullPath == "" {
			rec.FullPath = joinWindowsPath(rec.Path, rec.Name)
		}

		page.Records = append(page.Records, rec)
	}

	return page, nil
}

// decodeItemData reads one item's data block. Fields appear in fieldOrder
// for every bit set in mask. On the first out-of-range length or offset it
// stops: fields parsed so far are kept, the rest stay absent, and false is
// returned so the caller can count the item as degraded.
func decodeItemData(buf []byte, dataOff uint32, mask RequestFlags, rec *ResultRecord) bool {
	cur := int(dataOff)
	if cur < 0 || cur > len(buf) {
		return false
	}

	for _, field := range fieldOrder {
		if mask&field == 0 {
			continue
		}

		switch field {
		case RequestName, RequestPath, RequestFullPathAndName,
			RequestExtension, RequestFileListFileName:
			s, next, ok := readLenPrefixedUTF16(buf, cur)
			if !ok {
				return false
			}
			cur = next
			switch field {
			case RequestName:
				rec.Name = s
			case RequestPath:
				rec.Path = s
			case RequestFullPathAndName:
				rec.FullPath = s
			case RequestExtension:
				rec.Extension = &s
			case RequestFileListFileName:
				rec.FileListFileName = &s
			}

		case RequestSize:
			v, next, ok := readInt64(buf, cur)
			if !ok {
				return false
			}
			cur = next
			if v >= 0 {
				rec.Size = &v
			}

		case RequestDateCreated, RequestDateModified, RequestDateAccessed,
			RequestDateRun, RequestDateRecentlyChanged:
			v, next, ok := readInt64(buf, cur)
			if !ok {
				return false
			}
			cur = next
			t, valid := filetimeToTime(v)
			if !valid {
				continue
			}
			switch field {
			case RequestDateCreated:
				rec.DateCreated = &t
			case RequestDateModified:
				rec.DateModified = &t
			case RequestDateAccessed:
				rec.DateAccessed = &t
			case RequestDateRun:
				rec.DateRun = &t
			case RequestDateRecentlyChanged:
				rec.DateRecentlyChanged = &t
			}

		case RequestAttributes:
			v, next, ok := readUint32(buf, cur)
			if !ok {
				return false
			}
			cur = next
			rec.Attributes = &v

		case RequestRunCount:
			v, next, ok := readUint32(buf, cur)
			if !ok {
				return false
			}
			cur = next
			rec.RunCount = &v
		}
	}

	return true
}

// readUTF16Z reads a NUL-terminated UTF-16LE string at a buffer-relative
// byte offset. Returns ok == false if the offset is outside the buffer.
func readUTF16Z(buf []byte, off uint32) (string, bool) {
	start := int(off)
	if start < 0 || start >= len(buf) {
		return "", false
	}

	var units []uint16
	for i := start; i+1 < len(buf); i += 2 {
		u := binary.LittleEndian.Uint16(buf[i:])
		if u == 0 {
			return string(utf16.Decode(units)), true
		}
		units = append(units, u)
	}
	// Ran off the buffer without a terminator; salvage what was read but
	// report the item as degraded.
	return string(utf16.Decode(units)), false
}

// readLenPrefixedUTF16 reads a {u32 length, length+1 UTF-16 units} string
// field at cur. The declared length excludes the terminator; the block
// includes it.
func readLenPrefixedUTF16(buf []byte, cur int) (string, int, bool) {
	if cur < 0 || cur+4 > len(buf) {
		return "", 0, false
	}
	n := int(binary.LittleEndian.Uint32(buf[cur:]))
	if n < 0 || n > MaxQueryLength*2 {
		return "", 0, false
	}
	start := cur + 4
	end := start + (n+1)*2
	if end > len(buf) {
		return "", 0, false
	}

	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = binary.LittleEndian.Uint16(buf[start+i*2:])
	}
	return string(utf16.Decode(units)), end, true
}

func readInt64(buf []byte, cur int) (int64, int, bool) {
	if cur < 0 || cur+8 > len(buf) {
		return 0, 0, false
	}
	return int64(binary.LittleEndian.Uint64(buf[cur:])), cur + 8, true
}

func readUint32(buf []byte, cur int) (uint32, int, bool) {
	if cur < 0 || cur+4 > len(buf) {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(buf[cur:]), cur + 4, true
}

func malformed(format string, args ...any) error {
	return errors.New(errors.ErrCodeMalformedReply, fmt.Sprintf(format, args...), nil)
}
