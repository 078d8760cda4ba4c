package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/remodeldb/remodel/internal/server"
	"github.com/remodeldb/remodel/internal/service"
)

const banner = `
 ___ ___ __  __  ___  ___  ___ _
| _ \ __|  \/  |/ _ \|   \| __| |
|   / _|| |\/| | (_) | |) | _|| |__
|_|_\___|_|  |_|\___/|___/|___|____|
`

func newServeCmd() *cobra.Command {
	var (
		src  sourceFlags
		host string
		port int
		noUI bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema preview over HTTP",
		Long: `Start the HTTP server that exposes the introspected schema, the mapping
document, and generated entity code as a read-only JSON API with a small
browser UI. The schema is introspected once at startup; clients request a
fresh run with ?refresh=1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, src, host, port, noUI)
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (default from config)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the browser UI")

	return cmd
}

func runServe(cmd *cobra.Command, src sourceFlags, host string, port int, noUI bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := src.apply(cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	logger := newLogger(cfg)

	shutdownTimeout, err := parseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if shutdownTimeout == 0 {
		shutdownTimeout = 15 * time.Second
	}
	rateWindow, err := parseDuration(cfg.Server.RateLimit.Window)
	if err != nil {
		return fmt.Errorf("server.rate_limit.window: %w", err)
	}

	in, err := connectSource(cfg, logger)
	if err != nil {
		return err
	}
	// The server owns the connection from here on; ListenAndServe
	// disconnects it during shutdown.

	pipeline, err := buildPipeline(cfg, in, logger)
	if err != nil {
		in.Disconnect()
		return err
	}
	preview := service.NewPreview(pipeline)

	// Introspect once before listening so a bad DSN or an empty table
	// selection fails fast instead of surfacing on the first request.
	result, err := preview.Refresh(context.Background())
	if err != nil {
		in.Disconnect()
		return fmt.Errorf("initial introspection: %w", err)
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     cfg.Server.CORS.Origins,
		CORSMethods:     cfg.Server.CORS.Methods,
		RateLimit:       cfg.Server.RateLimit.Requests,
		RateWindow:      rateWindow,
		EnableUI:        !noUI,
		Version:         appVersion,
	}
	srv := server.New(srvCfg, in, preview, genOptions(cfg), logger)

	schemaLabel := result.Schema
	if schemaLabel == "" {
		schemaLabel = "(default)"
	}

	fmt.Printf("→ remodel %s\n", appVersion)
	fmt.Printf("→ Source:     %s, schema %s, %d tables\n", result.Dialect, schemaLabel, len(result.Defs))
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if !noUI {
		fmt.Printf("→ Preview UI: http://%s:%d/\n", cfg.Server.Host, cfg.Server.Port)
	}
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
