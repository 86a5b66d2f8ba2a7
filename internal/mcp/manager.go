package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/tools"
)

// Manager owns the MCP server processes for one session.
type Manager struct {
	clients map[string]*mcpclient.Client
	tools   []tools.Tool
}

// Start launches every configured server, initializes it, and wraps its
// tools. A server that fails to start or initialize is logged and skipped;
// MCP problems never block session setup.
func Start(ctx context.Context, servers map[string]config.MCPServer) *Manager {
	m := &Manager{clients: make(map[string]*mcpclient.Client)}

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := servers[name]
		if spec.Command == "" {
			slog.Warn("mcp server has no command, skipping", "server", name)
			continue
		}
		cli, remoteTools, err := connect(ctx, name, spec)
		if err != nil {
			slog.Warn("mcp server unavailable", "server", name, "error", err)
			continue
		}
		m.clients[name] = cli
		for _, rt := range remoteTools {
			m.tools = append(m.tools, newBridgedTool(name, rt, cli))
		}
		slog.Debug("mcp server started", "channel", "mcp", "server", name, "tools", len(remoteTools))
	}
	return m
}

func connect(ctx context.Context, name string, spec config.MCPServer) (*mcpclient.Client, []mcpgo.Tool, error) {
	env := make([]string, 0, len(spec.Env))
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+spec.Env[k])
	}

	cli, err := mcpclient.NewStdioMCPClient(spec.Command, env, spec.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", spec.Command, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcpgo.ClientCapabilities{}
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "heddle", Version: config.Version}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return nil, nil, fmt.Errorf("initialize %s: %w", name, err)
	}

	list, err := cli.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		cli.Close()
		return nil, nil, fmt.Errorf("list tools for %s: %w", name, err)
	}
	return cli, list.Tools, nil
}

// Tools returns every bridged tool across all running servers.
func (m *Manager) Tools() []tools.Tool {
	return m.tools
}

// Register adds all bridged tools to a registry.
func (m *Manager) Register(reg *tools.Registry) error {
	for _, t := range m.tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down every server process.
func (m *Manager) Close() {
	for name, cli := range m.clients {
		if err := cli.Close(); err != nil {
			slog.Debug("mcp close failed", "channel", "mcp", "server", name, "error", err)
		}
	}
}
