package mcp

import (
	"encoding/json"
)

// JSON-RPC 2.0 envelope types. IDs are kept as raw JSON so numbers and
// strings echo back byte-for-byte.

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and therefore
// must not receive a reply.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Standard JSON-RPC error codes, plus the server-defined code for
// declared-but-unimplemented features.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	NotImplemented = -32001
)

// MCP protocol structures.

// ServerInfo describes one side of the session.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities declares which protocol surfaces the server implements.
type Capabilities struct {
	Tools     ToolFlags     `json:"tools"`
	Resources ResourceFlags `json:"resources"`
}

type ToolFlags struct {
	List bool `json:"list"`
	Call bool `json:"call"`
}

type ResourceFlags struct {
	List      bool `json:"list"`
	Read      bool `json:"read"`
	Subscribe bool `json:"subscribe"`
}

// InitializeParams are the client's initialize parameters.
type InitializeParams struct {
	ProtocolVersion string      `json:"protocolVersion,omitempty"`
	ClientInfo      *ServerInfo `json:"clientInfo,omitempty"`
}

// InitializeResult is the server's initialize reply.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Tool describes one callable tool in tools/list.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON schema for a tool's arguments object.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single argument in an input schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ToolsListResult is the result of tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the parameters of tools/call.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is a successful tool invocation.
type ToolCallResult struct {
	ToolName string         `json:"toolName,omitempty"`
	Content  []ContentBlock `json:"content"`
	Meta     map[string]any `json:"_meta,omitempty"`
}

// ContentBlock is one item of tool result content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextResult builds a single-text-block tool result.
func TextResult(tool, text string) *ToolCallResult {
	return &ToolCallResult{
		ToolName: tool,
		Content:  []ContentBlock{{Type: "text", Text: text}},
	}
}

// ResourcesListResult is the (always empty) result of resources/list.
type ResourcesListResult struct {
	Resources []Resource `json:"resources"`
}

type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
