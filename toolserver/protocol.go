// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package toolserver

import "encoding/json"

// protocolVersion is the protocol version reported by initialize. The
// server always answers with its own version; the client decides
// whether it can proceed.
const protocolVersion = "2025-11-25"

// JSON-RPC 2.0 standard error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// request is one inbound line: a JSON-RPC 2.0 request or notification.
// Notifications have no ID and receive no response.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the request has no ID.
func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

// response is one outbound line. Exactly one of Result or Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// initializeResult is the handshake banner.
type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
}

// serverCapabilities declares what the server supports. Presence of
// Tools signals tool support.
type serverCapabilities struct {
	Tools *toolCapability `json:"tools,omitempty"`
}

type toolCapability struct{}

// serverInfo identifies the server.
type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// toolDescription is one entry in the tools/list catalog.
type toolDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// toolsListResult is the tools/list response.
type toolsListResult struct {
	Tools []toolDescription `json:"tools"`
}

// toolsCallParams is the tools/call request parameters.
type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolsCallResult is the tools/call response. Every result carries at
// least one text content block; IsError marks tool failures, which are
// reported as text rather than protocol errors so the agent keeps
// receiving results.
type toolsCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// contentBlock is a text content block within a tool result.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
