// Package mcp exposes the transfer engine as MCP tools over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/wanjune/yuu-transfer/internal/profiles"
)

const serverName = "yuu-transfer"

// Server wraps the MCP server implementation.
type Server struct {
	mcpServer *server.MCPServer
	profiles  *profiles.Resolver
}

// NewServer creates an MCP server whose tools act on the profiles that
// resolver knows about.
func NewServer(resolver *profiles.Resolver, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		profiles: resolver,
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport.
func (s *Server) Run() error {
	slog.Info("starting MCP server on stdio transport")
	return server.ServeStdio(s.mcpServer)
}
