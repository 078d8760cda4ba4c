package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	rmcp "github.com/remodeldb/remodel/internal/mcp"
	"github.com/remodeldb/remodel/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		src       sourceFlags
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes schema
inspection, mapping generation, and entity previews as tools for AI
agents. Supports stdio (default) and HTTP transports.

In stdio mode the server communicates over stdin/stdout using JSON-RPC,
suitable for clients that launch it as a subprocess. In HTTP mode it
listens on the specified port for streamable HTTP connections.`,
		Example: `  remodel mcp --dsn postgres://app@localhost/shop
  remodel mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(src, transport, port)
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(src sourceFlags, transport string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := src.apply(cfg); err != nil {
		return err
	}
	// Logs already go to stderr; on the stdio transport stdout belongs to
	// the protocol stream.
	logger := newLogger(cfg)

	in, err := connectSource(cfg, logger)
	if err != nil {
		return err
	}
	defer in.Disconnect()

	pipeline, err := buildPipeline(cfg, in, logger)
	if err != nil {
		return err
	}
	preview := service.NewPreview(pipeline)

	srv := rmcp.NewMCPServer(preview, genOptions(cfg), appVersion, logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
