// Package sqlite introspects SQLite databases through PRAGMA statements and
// sqlite_master.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// SQLite implements introspect.Introspector for SQLite database files. The
// DSN is a file path, or ":memory:" for an in-memory database; query
// parameters like ?_journal_mode=WAL pass through to the driver.
type SQLite struct {
	db *sqlx.DB
}

// New creates an unconnected SQLite introspector.
func New() introspect.Introspector { return &SQLite{} }

// Connect opens the database file.
func (c *SQLite) Connect(cfg introspect.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlite", cfg.DSN)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}
	introspect.ConfigurePool(db, cfg)

	c.db = db
	return nil
}

// Disconnect closes the database.
func (c *SQLite) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (c *SQLite) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// CurrentSchema returns "main". SQLite has no schema namespaces beyond
// attached databases, which this tool does not walk.
func (c *SQLite) CurrentSchema(_ context.Context) (string, error) {
	return "main", nil
}

// DefaultKeyType is the type rowid aliases get.
func (c *SQLite) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "integer"}
}

// Dialect returns the dialect identifier.
func (c *SQLite) Dialect() string { return "sqlite" }

// quoteIdent wraps an identifier for PRAGMA calls, which cannot take bind
// parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
