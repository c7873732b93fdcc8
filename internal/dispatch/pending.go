package dispatch

import (
	"time"

	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/internal/transport"
)

// opKind distinguishes the two operations the worker performs.
type opKind int

const (
	opSearch opKind = iota
	opWord
)

// outcome is what the worker hands back for one submission.
type outcome struct {
	page *ipc.ReplyPage
	word uint64
	err  error
}

// submission is one queued request. The result channel is buffered so the
// worker never blocks on a caller that has already given up.
type submission struct {
	kind opKind

	// opSearch
	req *ipc.SearchRequest

	// opWord
	code ipc.StatusCode

	// id correlates log lines for this request across caller and worker.
	id string

	deadline time.Time
	result   chan outcome
}

// pendingReply is the single-occupancy awaiting slot: the one in-flight
// search whose reply the worker is waiting for. The engine answers requests
// one at a time, and a reply carries no request identifier, so at most one
// search may be outstanding.
type pendingReply struct {
	sub      *submission
	engine   transport.Handle
	extended bool
	deadline time.Time
}

// expired reports whether the awaiting slot outlived its caller's deadline.
func (p *pendingReply) expired(now time.Time) bool {
	return now.After(p.deadline)
}
