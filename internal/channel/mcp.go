package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	clientName    = "repobrief"
	clientVersion = "1.0.0"
)

// StdioOptions describes the MCP server child process.
type StdioOptions struct {
	Command string
	Args    []string
	// Env is appended to the parent environment of the child process.
	Env []string
}

// MCPChannel is a Channel backed by an initialized MCP client session.
type MCPChannel struct {
	mu     sync.Mutex
	client *client.Client
	logger *zap.Logger
}

// DialStdio spawns the MCP server described by opts and initializes a session.
func DialStdio(ctx context.Context, opts StdioOptions, logger *zap.Logger) (*MCPChannel, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, errors.New("mcp: server command is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("connecting to MCP server", zap.String("command", opts.Command), zap.Strings("args", opts.Args))

	c, err := client.NewStdioMCPClient(opts.Command, opts.Env, opts.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", opts.Command, err)
	}
	return Connect(ctx, c, logger)
}

// Connect initializes an MCP session over an already started client and lists
// its tools. The client is closed when initialization fails.
func Connect(ctx context.Context, c *client.Client, logger *zap.Logger) (*MCPChannel, error) {
	if c == nil {
		return nil, ErrNotConnected
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ch := &MCPChannel{client: c, logger: logger}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := c.Initialize(ctx, req); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("mcp: initialize: %w", err)
	}

	tools, err := ch.ListTools(ctx)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	logger.Info("connected to MCP server", zap.Strings("tools", ToolNames(tools)))
	return ch, nil
}

func (m *MCPChannel) session() (*client.Client, error) {
	if m == nil {
		return nil, ErrNotConnected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrNotConnected
	}
	return m.client, nil
}

func (m *MCPChannel) ListTools(ctx context.Context) ([]Tool, error) {
	c, err := m.session()
	if err != nil {
		return nil, err
	}
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}
	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, Tool{Name: t.Name, Description: t.Description})
	}
	return tools, nil
}

func (m *MCPChannel) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	c, err := m.session()
	if err != nil {
		return ToolResult{}, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("mcp: call %s: %w", name, err)
	}
	if res == nil {
		return ToolResult{}, nil
	}

	out := ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			out.Texts = append(out.Texts, tc.Text)
		case *mcp.TextContent:
			out.Texts = append(out.Texts, tc.Text)
		}
	}
	return out, nil
}

// Close ends the session and stops the server process. It is safe to call
// more than once and on a channel whose initialization failed.
func (m *MCPChannel) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("mcp: close: %w", err)
	}
	m.logger.Info("disconnected from MCP server")
	return nil
}
