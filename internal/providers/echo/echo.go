// Package echo provides the echo tool, mostly useful for wiring checks.
package echo

import (
	mcp "sparqlmcp/internal/mcp"
)

// Registration
func init() {
	mcp.Register("echo", func(opts map[string]any) ([]mcp.Backend, error) {
		return []mcp.Backend{&tool{}}, nil
	})
}

type tool struct{}

func (t *tool) Descriptor() mcp.Tool {
	return mcp.Tool{
		Name:        "echo",
		Description: "Echo the given text back to the caller",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"text": {
					Type:        "string",
					Description: "Text to echo back",
				},
			},
		},
	}
}

// Invoke treats a missing text argument as an empty string.
func (t *tool) Invoke(args map[string]any) (*mcp.ToolCallResult, *mcp.Error) {
	text, _ := args["text"].(string)
	return mcp.TextResult("echo", "Echo: "+text), nil
}
