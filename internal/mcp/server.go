package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/service"
)

// MCPServer wraps the mcp-go server with the mapping tools and resources.
// It exposes the introspected schema and the generated mapping so AI agents
// can explore a database model without writing SQL themselves.
type MCPServer struct {
	preview *service.Preview
	genOpts gen.Options
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all mapping tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(preview *service.Preview, genOpts gen.Options, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		preview: preview,
		genOpts: genOpts,
		logger:  logger,
	}

	if version == "" {
		version = "0.0.0"
	}
	mcpServer := server.NewMCPServer(
		"Remodel Schema Mapper",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	// Register tools (table discovery, mapping and entity generation)
	s.registerTools(mcpServer)

	// Register resources (schema model, mapping document, entity sources)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001"). This is suitable for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

// readOnlyAnnotation marks a tool as non-mutating. Every tool here is
// read-only; the server never writes to the inspected database.
func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
