package cli

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/remodeldb/remodel/internal/config"
	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/introspect/mssql"
	"github.com/remodeldb/remodel/internal/introspect/mysql"
	"github.com/remodeldb/remodel/internal/introspect/postgres"
	"github.com/remodeldb/remodel/internal/introspect/snowflake"
	"github.com/remodeldb/remodel/internal/introspect/sqlite"
	"github.com/remodeldb/remodel/internal/naming"
	"github.com/remodeldb/remodel/internal/selector"
	"github.com/remodeldb/remodel/internal/service"
	"github.com/remodeldb/remodel/internal/store"
)

// sourceFlags are the overrides shared by every command that connects to a
// database. Empty values leave the config file setting in place.
type sourceFlags struct {
	dsn         string
	dialect     string
	schema      string
	tables      string
	strategy    string
	intWidth    int
	askPassword bool
}

func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "Data source name / connection string (overrides config)")
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "Database dialect: postgres, mysql, mssql, snowflake, sqlite")
	cmd.Flags().StringVar(&f.schema, "schema", "", "Database schema to introspect (default depends on dialect)")
	cmd.Flags().StringVar(&f.tables, "tables", "", `Table selector, e.g. "public.*, !audit_*"`)
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Naming strategy: default or verbatim")
	cmd.Flags().IntVar(&f.intWidth, "int-width", 0, "Width of generated integer fields: 32 or 64")
	cmd.Flags().BoolVar(&f.askPassword, "ask-password", false, "Prompt for the database password instead of embedding it in the DSN")
}

func (f *sourceFlags) apply(cfg *config.Config) error {
	if f.dsn != "" {
		cfg.Source.DSN = f.dsn
	}
	if f.dialect != "" {
		cfg.Source.Dialect = f.dialect
	}
	if f.schema != "" {
		cfg.Source.Schema = f.schema
	}
	if f.tables != "" {
		cfg.Tables = f.tables
	}
	if f.strategy != "" {
		cfg.Naming.Strategy = f.strategy
	}
	if f.intWidth != 0 {
		cfg.Naming.IntWidth = f.intWidth
	}
	if f.askPassword {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		dsn, err := injectPassword(cfg.Source.DSN, password)
		if err != nil {
			return err
		}
		cfg.Source.DSN = dsn
	}
	return nil
}

// loadConfig resolves the project configuration: the --config file if given,
// otherwise the remodel.yaml viper found on its search path, otherwise
// built-in defaults. Environment variables override the file, so
// REMODEL_SOURCE_DSN keeps credentials out of remodel.yaml.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := viper.GetString("source.dsn"); v != "" {
		cfg.Source.DSN = v
	}
	if v := viper.GetString("source.dialect"); v != "" {
		cfg.Source.Dialect = v
	}
	if v := viper.GetString("source.schema"); v != "" {
		cfg.Source.Schema = v
	}
	return cfg, nil
}

// newLogger builds the slog logger the config asks for. Logs go to stderr
// so generated documents can be piped from stdout.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newRegistry creates an introspector registry with all supported dialects.
func newRegistry() *introspect.Registry {
	registry := introspect.NewRegistry()
	registry.Register("postgres", postgres.New)
	registry.Register("mysql", mysql.New)
	registry.Register("mssql", mssql.New)
	registry.Register("snowflake", snowflake.New)
	registry.Register("sqlite", sqlite.New)
	return registry
}

// connectSource opens an introspector for the configured database.
func connectSource(cfg *config.Config, logger *slog.Logger) (introspect.Introspector, error) {
	cc, err := connectionConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("connecting",
		"dialect", cc.Dialect,
		"dsn", introspect.SanitizeDSN(cc.Dialect, cc.DSN),
	)

	in, err := newRegistry().Open(cc)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func connectionConfig(cfg *config.Config) (introspect.ConnectionConfig, error) {
	if cfg.Source.DSN == "" {
		return introspect.ConnectionConfig{}, fmt.Errorf("no DSN configured; pass --dsn or set source.dsn in remodel.yaml")
	}

	cc := introspect.ConnectionConfig{
		Dialect:        cfg.Source.Dialect,
		DSN:            cfg.Source.DSN,
		Schema:         cfg.Source.Schema,
		PrivateKeyPath: cfg.Source.PrivateKeyPath,
	}

	if pool := cfg.Source.Pool; pool != nil {
		cc.MaxOpenConns = pool.MaxOpenConns
		cc.MaxIdleConns = pool.MaxIdleConns
		var err error
		if cc.ConnMaxLifetime, err = parseDuration(pool.ConnMaxLifetime); err != nil {
			return introspect.ConnectionConfig{}, fmt.Errorf("pool.conn_max_lifetime: %w", err)
		}
		if cc.ConnMaxIdleTime, err = parseDuration(pool.ConnMaxIdleTime); err != nil {
			return introspect.ConnectionConfig{}, fmt.Errorf("pool.conn_max_idle_time: %w", err)
		}
	}
	return cc, nil
}

// buildPipeline assembles the mapping pipeline from the resolved config.
func buildPipeline(cfg *config.Config, in introspect.Introspector, logger *slog.Logger) (*service.Pipeline, error) {
	sel, err := selector.Parse(cfg.Tables)
	if err != nil {
		return nil, fmt.Errorf("parse table selector: %w", err)
	}
	strategy, err := resolveStrategy(cfg.Naming.Strategy)
	if err != nil {
		return nil, err
	}
	return &service.Pipeline{
		Introspector: in,
		Selector:     sel,
		Strategy:     strategy,
		Logger:       logger,
	}, nil
}

func resolveStrategy(name string) (naming.Strategy, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return naming.Default{}, nil
	case "verbatim":
		return naming.Verbatim{}, nil
	default:
		return nil, fmt.Errorf("unknown naming strategy %q; use 'default' or 'verbatim'", name)
	}
}

func genOptions(cfg *config.Config) gen.Options {
	return gen.Options{
		Package:  cfg.Output.Package,
		IntWidth: cfg.Naming.IntWidth,
	}
}

// parseDuration parses an optional duration string, treating "" as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// promptPassword reads a password from the terminal without echo. The
// prompt goes to stderr so stdout stays clean for piped output.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pwBytes), nil
}

// injectPassword splices a prompted password into a URL-style DSN.
func injectPassword(dsn, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.User == nil {
		return "", fmt.Errorf("--ask-password needs a URL-style DSN with a user, e.g. postgres://app@localhost/db")
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

// resolveDataDir returns the snapshot archive directory from the --data-dir
// flag, the REMODEL_DATA_DIR env var, or ~/.remodel as fallback.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if envDir := os.Getenv("REMODEL_DATA_DIR"); envDir != "" {
		return envDir, nil
	}
	return store.DefaultDir()
}

// openSnapshotStore opens the SQLite snapshot archive.
func openSnapshotStore() (*store.Store, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	return store.NewStore(dir)
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
