package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool describes one tool advertised by the MCP server.
type Tool struct {
	Name        string
	Description string
}

// MCP is a connected MCP client session.
type MCP struct {
	session *sdkmcp.ClientSession
}

// DialMCP connects to a streamable HTTP MCP endpoint such as
// http://127.0.0.1:52500/mcp.
func DialMCP(ctx context.Context, endpoint, version string) (*MCP, error) {
	return ConnectMCP(ctx, &sdkmcp.StreamableClientTransport{Endpoint: endpoint}, version)
}

// ConnectMCP opens a session over an arbitrary transport.
func ConnectMCP(ctx context.Context, transport sdkmcp.Transport, version string) (*MCP, error) {
	if version == "" {
		version = "dev"
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "notebrief-client", Version: version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return &MCP{session: session}, nil
}

// Close ends the session.
func (c *MCP) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	return c.session.Close()
}

// Tools lists the server's tools.
func (c *MCP) Tools(ctx context.Context) ([]Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp list tools: %w", err)
	}
	tools := make([]Tool, 0, len(res.Tools))
	for _, tool := range res.Tools {
		tools = append(tools, Tool{Name: tool.Name, Description: tool.Description})
	}
	return tools, nil
}

// Call invokes a tool and returns its text content. A result flagged as an
// error is returned as an error carrying the same text.
func (c *MCP) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcp call %s: %w", name, err)
	}
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}
