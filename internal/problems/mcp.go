package problems

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPToolName is the tool an MCP problem server must expose.
const MCPToolName = "get_leetcode_problem"

// toolCaller is the subset of *client.Client used here.
type toolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPClient fetches problems by calling get_leetcode_problem on an MCP
// server.
type MCPClient struct {
	caller toolCaller
}

// MCPConfig locates the MCP server. Exactly one of Command or URL is used;
// Command wins when both are set.
type MCPConfig struct {
	// Command launches a stdio server, e.g. "npx -y leetcode-mcp".
	Command string
	Env     []string

	// URL points at a streamable HTTP server.
	URL string
}

// DialMCP connects to and initializes the configured server.
func DialMCP(ctx context.Context, cfg MCPConfig) (*MCPClient, error) {
	var (
		c   *client.Client
		err error
	)
	switch {
	case cfg.Command != "":
		fields := strings.Fields(cfg.Command)
		c, err = client.NewStdioMCPClient(fields[0], cfg.Env, fields[1:]...)
		if err != nil {
			return nil, fmt.Errorf("launch mcp server: %w", err)
		}
	case cfg.URL != "":
		c, err = client.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("create mcp client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("start mcp client: %w", err)
		}
	default:
		return nil, errors.New("mcp: neither command nor url configured")
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "algotutor", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize mcp client: %w", err)
	}

	return &MCPClient{caller: c}, nil
}

func (c *MCPClient) Name() string { return "mcp" }

// Problem calls the problem tool and decodes its text payload.
func (c *MCPClient) Problem(ctx context.Context, slug string) (*Problem, error) {
	res, err := c.caller.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      MCPToolName,
			Arguments: map[string]any{"slug": slug},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", MCPToolName, err)
	}

	text := resultText(res)
	if res.IsError {
		return nil, fmt.Errorf("%s failed: %s", MCPToolName, text)
	}

	var p Problem
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", MCPToolName, err)
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	if p.Slug == "" {
		p.Slug = slug
	}
	return &p, nil
}

// Close shuts the MCP session down.
func (c *MCPClient) Close() error {
	return c.caller.Close()
}

func resultText(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			sb.WriteString(tc.Text)
		case *mcp.TextContent:
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
