package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spetersoncode/relay/tool"
)

type serverConfig struct {
	name, version, workDir string
}

// ServerOption configures NewServer.
type ServerOption func(*serverConfig)

// WithName sets the name reported to clients. The default is "relay-tools".
func WithName(name string) ServerOption { return func(c *serverConfig) { c.name = name } }

// WithVersion sets the version reported to clients.
func WithVersion(version string) ServerOption { return func(c *serverConfig) { c.version = version } }

// WithWorkDir sets the directory file tools resolve paths against.
func WithWorkDir(dir string) ServerOption { return func(c *serverConfig) { c.workDir = dir } }

// NewServer publishes the tools registry holds now; later registrations
// are not seen. Calls run through registry.Invoke, so validation and
// error results behave as they do for agents.
func NewServer(registry *tool.Registry, opts ...ServerOption) *server.MCPServer {
	cfg := serverConfig{name: "relay-tools", version: "1.0.0"}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := server.NewMCPServer(cfg.name, cfg.version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	env := tool.Env{WorkDir: cfg.workDir}
	for _, t := range registry.Schemas() {
		name := t.Name
		s.AddTool(exportTool(t), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return exportResult(registry.Invoke(ctx, name, req.GetArguments(), env)), nil
		})
	}
	return s
}

// ServeStdio serves registry on stdin and stdout until the client hangs up.
func ServeStdio(registry *tool.Registry, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(registry, opts...))
}
