package ipc

import (
	"encoding/binary"
	"unicode/utf16"
)

// Tag returns the COPYDATA tag matching the request's layout.
func (r *SearchRequest) Tag() uint32 {
	if r.Extended() {
		return CopyDataQuery2
	}
	return CopyDataQuery
}

// Encode builds the contiguous wire buffer for the request.
//
// replyTarget is the identity of the window that will receive the reply and
// replyTag the COPYDATA tag the engine should echo on it; both are owned by
// the dispatcher and stamped in here at send time. The query text follows the
// fixed header as UTF-16LE with a terminating NUL unit.
func Encode(r *SearchRequest, replyTarget uint32, replyTag uint32) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	units := utf16.Encode([]rune(r.Query))

	headerSize := basicQueryHeaderSize
	if r.Extended() {
		headerSize = extendedQueryHeaderSize
	}
	buf := make([]byte, headerSize+len(units)*2+2)

	le := binary.LittleEndian
	le.PutUint32(buf[0:], replyTarget)
	le.PutUint32(buf[4:], replyTag)
	le.PutUint32(buf[8:], uint32(r.Flags))
	le.PutUint32(buf[12:], r.Offset)
	le.PutUint32(buf[16:], r.MaxResults)
	if r.Extended() {
		le.PutUint32(buf[20:], uint32(r.Request))
		le.PutUint32(buf[24:], uint32(r.Sort))
	}

	for i, u := range units {
		le.PutUint16(buf[headerSize+i*2:], u)
	}
	// Trailing NUL unit is already zero from make.

	return buf, nil
}
