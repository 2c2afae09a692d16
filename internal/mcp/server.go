// Package mcp implements a Model Context Protocol server over a byte
// stream, with auto-detected dual framing (Content-Length headers or
// line-delimited JSON) and a pluggable tool backend registry.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultProtocolVersion is advertised when the client does not request
	// a specific protocol version during initialize.
	DefaultProtocolVersion = "2024-11-05"

	serverName = "sparqlmcp"
)

type handlerFunc func(params json.RawMessage) (any, *Error)

// Server classifies decoded envelopes and routes requests to handlers.
// Processing is fully synchronous: one message at a time, read to write.
type Server struct {
	registry *Registry
	version  string
	handlers map[string]handlerFunc
}

// NewServer creates a server exposing the given tool registry.
func NewServer(reg *Registry, version string) *Server {
	s := &Server{registry: reg, version: version}
	s.handlers = map[string]handlerFunc{
		"initialize":     s.handleInitialize,
		"tools/list":     s.handleToolsList,
		"tools/call":     s.handleToolsCall,
		"resources/list": s.handleResourcesList,
		"resources/read": s.handleResourcesRead,
		"ping":           s.handlePing,
	}
	return s
}

// Serve processes messages from t until the input stream ends. Malformed
// messages are logged and dropped; the loop exits on end-of-stream, a
// reader or write failure, or context cancellation.
func (s *Server) Serve(ctx context.Context, t *Transport) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, err := t.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logrus.Debug("input stream closed; shutting down")
				return nil
			}
			if !recoverable(err) {
				return fmt.Errorf("read message: %w", err)
			}
			logrus.WithError(err).Warn("dropping malformed message")
			continue
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			logrus.WithError(err).Warn("dropping message that is not a request envelope")
			continue
		}

		if req.IsNotification() {
			logrus.WithField("method", req.Method).Debug("notification received; no reply")
			continue
		}

		resp := s.dispatch(&req)
		if err := t.WriteMessage(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// dispatch builds the response envelope for one request. Exactly one of
// Result or Error is populated.
func (s *Server) dispatch(req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	h, ok := s.handlers[req.Method]
	if !ok {
		resp.Error = &Error{Code: MethodNotFound, Message: "method not found: " + req.Method}
		return resp
	}

	result, rpcErr := h(req.Params)
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) handleInitialize(params json.RawMessage) (any, *Error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &Error{Code: InvalidParams, Message: "invalid initialize params"}
		}
	}

	version := p.ProtocolVersion
	if version == "" {
		version = DefaultProtocolVersion
	}

	return &InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      ServerInfo{Name: serverName, Version: s.version},
		Capabilities: Capabilities{
			Tools:     ToolFlags{List: true, Call: true},
			Resources: ResourceFlags{List: true},
		},
	}, nil
}

func (s *Server) handleToolsList(json.RawMessage) (any, *Error) {
	return &ToolsListResult{Tools: s.registry.Tools()}, nil
}

func (s *Server) handleToolsCall(params json.RawMessage) (any, *Error) {
	var p ToolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "invalid tools/call params"}
	}

	backend, ok := s.registry.Get(p.Name)
	if !ok {
		return nil, &Error{Code: MethodNotFound, Message: "unknown tool: " + p.Name}
	}

	logrus.WithField("tool", p.Name).Debug("invoking tool")
	result, rpcErr := backend.Invoke(p.Arguments)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return result, nil
}

func (s *Server) handleResourcesList(json.RawMessage) (any, *Error) {
	return &ResourcesListResult{Resources: []Resource{}}, nil
}

func (s *Server) handleResourcesRead(json.RawMessage) (any, *Error) {
	return nil, &Error{Code: NotImplemented, Message: "no resources implemented"}
}

func (s *Server) handlePing(json.RawMessage) (any, *Error) {
	return map[string]any{"ok": true}, nil
}
