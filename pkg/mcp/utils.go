package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unowned-ai/quire/pkg/entries"
)

// jsonResult serializes v as the text content of a successful result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err as a tool error. Not-found has one fixed message whatever the
// cause, so a hidden draft reads exactly like a missing entry.
func errorResult(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, entries.ErrNotFound) {
		return mcp.NewToolResultError("Entry not found.")
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

func unauthorized() *mcp.CallToolResult {
	return mcp.NewToolResultError("unauthorized: this tool requires an owner token (see the login tool).")
}

// optionalString returns nil when key is absent so callers can tell "not given" from "".
func optionalString(request mcp.CallToolRequest, key string) *string {
	if v, ok := request.GetArguments()[key].(string); ok {
		return &v
	}
	return nil
}

func optionalBool(request mcp.CallToolRequest, key string) *bool {
	if v, ok := request.GetArguments()[key].(bool); ok {
		return &v
	}
	return nil
}
