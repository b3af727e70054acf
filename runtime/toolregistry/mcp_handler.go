package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// MCPServerInfo resolves the connection manager snapshot fields spec
// §4.2 says dispatch telemetry attaches for MCP payloads: the server
// name and its origin.
type MCPServerInfo struct {
	ServerName string
	Origin     string
}

// MCPHandler dispatches tool calls to a single connected MCP server.
// Every tool this server advertises is mutating by default: the protocol
// gives no cheaper way to know, so MCP calls are treated conservatively
// and gated like any other mutating call.
type MCPHandler struct {
	server MCPServerInfo
	client *mcpclient.Client
}

// NewMCPHandler constructs a handler bound to an already-initialized
// mcp-go client for one server.
func NewMCPHandler(server MCPServerInfo, client *mcpclient.Client) *MCPHandler {
	return &MCPHandler{server: server, client: client}
}

func (h *MCPHandler) Kind() HandlerKind { return HandlerMCP }

func (h *MCPHandler) MatchesKind(kind PayloadKind) bool { return kind == PayloadMCP }

func (h *MCPHandler) IsMutating(Invocation) bool { return true }

func (h *MCPHandler) Handle(ctx context.Context, inv Invocation) (protocol.ToolOutput, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = inv.Name
	req.Params.Arguments = inv.StructuredInput

	result, err := h.client.CallTool(ctx, req)
	if err != nil {
		return protocol.ToolOutput{}, fmt.Errorf("mcp server %q: call tool %q: %w", h.server.ServerName, inv.Name, err)
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	if text == "" {
		if b, err := json.Marshal(result.Content); err == nil {
			text = string(b)
		}
	}

	status := protocol.ToolOutputSuccess
	if result.IsError {
		status = protocol.ToolOutputError
	}
	return protocol.ToolOutput{CallID: inv.CallID, Status: status, Output: text}, nil
}
