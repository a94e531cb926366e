// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolserver exposes the coordination services to the agent
// process as named tools over newline-delimited JSON-RPC on
// stdin/stdout.
//
// The loop is strictly sequential: one request is read, handled, and
// answered before the next line is consumed. Failures of any kind —
// unknown method, unknown tool, bad parameters, a service error —
// become error responses; the loop itself only stops at EOF. A crash
// here would cut the agent off from every tool result for the rest of
// its run, so nothing a caller sends may take the process down.
package toolserver

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/outpost-foundation/outpost/lib/version"
)

// Server serves the tool catalog over a line-delimited stream.
type Server struct {
	tools       []tool
	toolsByName map[string]*tool
	logger      *slog.Logger
	initialized bool
}

// New creates a server exposing the given services. The identity baked
// into the services (the agent name from the environment) is the
// sender and recipient for every mailbox operation the server
// performs.
func New(services Services, logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	s.tools = catalog(services)
	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}
	return s
}

// Serve runs the server on stdin/stdout.
func (s *Server) Serve() error {
	return s.Run(os.Stdin, os.Stdout)
}

// Run processes requests from input and writes responses to output
// until input reaches EOF. Each request occupies a single line.
func (s *Server) Run(input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Tool results can be large (whole knowledge documents).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}

		// Notifications have no ID and receive no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// dispatch routes a request to its handler.
func (s *Server) dispatch(encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		s.initialized = true
		return writeResult(encoder, req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    serverCapabilities{Tools: &toolCapability{}},
			ServerInfo: serverInfo{
				Name:    "outpost-memory",
				Version: version.Short(),
			},
		})
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, len(s.tools))
	for i, t := range s.tools {
		descriptions[i] = toolDescription{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
		}
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	output, err := t.handler(params.Arguments)
	result := toolsCallResult{}
	if err != nil {
		// Tool failures are results, not protocol errors: the agent
		// reads the error text and decides what to do next.
		s.logger.Warn("tool call failed", "tool", params.Name, "error", err)
		result.IsError = true
		result.Content = []contentBlock{{Type: "text", Text: err.Error()}}
	} else {
		result.Content = []contentBlock{{Type: "text", Text: output}}
	}
	return writeResult(encoder, req.ID, result)
}

// writeResult sends a success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

// writeError sends an error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
