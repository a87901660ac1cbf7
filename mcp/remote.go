package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/tool"
)

// Remote is a session with an MCP server whose tools can be imported
// into a registry. It is safe for concurrent use.
type Remote struct {
	client *client.Client
	mu     sync.RWMutex
	tools  []ai.Tool
}

// ConnectStdio starts command as a subprocess and opens an MCP session
// with it over stdio.
func ConnectStdio(ctx context.Context, command string, env []string, args ...string) (*Remote, error) {
	// The stdio client spawns its subprocess on creation.
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return initialize(ctx, c)
}

// ConnectSSE opens an MCP session with a server over SSE.
func ConnectSSE(ctx context.Context, baseURL string) (*Remote, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE MCP client: %w", err)
	}
	return Connect(ctx, c)
}

// Connect starts c, initializes the session and fetches the tool list.
// The client is closed if any step fails.
func Connect(ctx context.Context, c *client.Client) (*Remote, error) {
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}
	return initialize(ctx, c)
}

func initialize(ctx context.Context, c *client.Client) (*Remote, error) {
	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "relay",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	r := &Remote{client: c}
	if err := r.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return r, nil
}

// Close ends the session.
func (r *Remote) Close() error {
	return r.client.Close()
}

// Refresh fetches the current tool list from the server.
func (r *Remote) Refresh(ctx context.Context) error {
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	tools := make([]ai.Tool, len(result.Tools))
	for i, t := range result.Tools {
		tools[i] = importTool(t)
	}

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()
	return nil
}

// Tools returns the server's tools as last listed.
func (r *Remote) Tools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ai.Tool(nil), r.tools...)
}

// Call invokes a tool on the server. Transport failures are returned as
// errors; failures the tool reports are error results.
func (r *Remote) Call(ctx context.Context, name string, params map[string]any) (ai.ToolResult, error) {
	result, err := r.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: params,
		},
	})
	if err != nil {
		return ai.ToolResult{}, fmt.Errorf("mcp call %s: %w", name, err)
	}
	return importResult(result), nil
}

// ImportOption configures Import.
type ImportOption func(*importConfig)

type importConfig struct {
	prefix string
	filter func(name string) bool
}

// WithPrefix prepends prefix to imported tool names, keeping tools from
// different servers apart.
func WithPrefix(prefix string) ImportOption {
	return func(c *importConfig) {
		c.prefix = prefix
	}
}

// WithFilter imports only tools whose remote name satisfies keep.
func WithFilter(keep func(name string) bool) ImportOption {
	return func(c *importConfig) {
		c.filter = keep
	}
}

// Import registers the server's tools in registry, each forwarding calls
// to the server. It returns the names registered.
func (r *Remote) Import(registry *tool.Registry, opts ...ImportOption) []string {
	cfg := &importConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var names []string
	for _, t := range r.Tools() {
		if cfg.filter != nil && !cfg.filter(t.Name) {
			continue
		}
		remoteName := t.Name
		t.Name = cfg.prefix + remoteName
		registry.Register(t, func(ctx context.Context, inv tool.Invocation) (ai.ToolResult, error) {
			return r.Call(ctx, remoteName, inv.Params)
		})
		names = append(names, t.Name)
	}
	return names
}
