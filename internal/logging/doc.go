// Package logging provides file-based logging with rotation for everything-mcp.
// The MCP stdio transport reserves stdout exclusively for JSON-RPC, so all
// diagnostics go to ~/.everything-mcp/logs/ and, outside MCP mode, optionally
// to stderr.
package logging
