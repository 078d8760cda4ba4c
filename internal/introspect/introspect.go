// Package introspect defines the catalog boundary of the mapping engine:
// everything the generator knows about a live database arrives through an
// Introspector. Dialect implementations live in subpackages and register
// themselves with a Registry.
package introspect

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/remodeldb/remodel/internal/schema"
)

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Dialect         string
	DSN             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PrivateKeyPath  string // PEM-encoded private key file (Snowflake key-pair auth)
}

// Introspector is the interface all dialect implementations satisfy.
//
// Names are relative to the connection's default schema: tables in the
// default schema carry an empty QualifiedName.Schema and list as bare names,
// tables elsewhere are schema-qualified. Implementations normalize the
// targets of reported foreign keys the same way, so closure computation sees
// one spelling per table.
type Introspector interface {
	Connect(cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error

	// ListTables returns the base table names of the given schema, sorted.
	// An empty schema means the connection default.
	ListTables(ctx context.Context, schemaName string) ([]string, error)
	// AnalyzeTable fetches one table with its columns, unique column groups,
	// and foreign keys. A missing table returns (nil, nil), not an error.
	AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error)
	// CurrentSchema reports the schema unqualified names resolve against.
	CurrentSchema(ctx context.Context) (string, error)

	// DefaultKeyType is the column type the dialect gives synthetic
	// autoincrement keys.
	DefaultKeyType() schema.LogicalType
	Dialect() string
}

// Fetch adapts an introspector to the closure fetch callback.
func Fetch(ctx context.Context, in Introspector) schema.FetchFunc {
	return func(name schema.QualifiedName) (*schema.Table, error) {
		return in.AnalyzeTable(ctx, name)
	}
}

// ConfigurePool applies the pool limits of cfg to an open connection.
func ConfigurePool(db *sqlx.DB, cfg ConnectionConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// NormalizeAction maps a catalog-reported referential action onto the
// engine's spelling: lower case, with the default action collapsing to the
// empty string. Catalogs disagree on separators (SET NULL vs SET_NULL), so
// underscores count as spaces.
func NormalizeAction(rule string) string {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rule), "_", " ")) {
	case "", "NO ACTION":
		return ""
	case "CASCADE":
		return "cascade"
	case "RESTRICT":
		return "restrict"
	case "SET NULL":
		return "set null"
	case "SET DEFAULT":
		return "set default"
	}
	return strings.ToLower(rule)
}
