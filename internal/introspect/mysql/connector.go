// Package mysql introspects MySQL and MariaDB databases through
// INFORMATION_SCHEMA.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// MySQL implements introspect.Introspector for MySQL.
type MySQL struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected MySQL introspector.
func New() introspect.Introspector { return &MySQL{} }

// Connect opens a connection pool. MySQL schemas are databases, so the
// configured schema falls back to the DSN's database.
func (c *MySQL) Connect(cfg introspect.ConnectionConfig) error {
	db, err := sqlx.Connect("mysql", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	introspect.ConfigurePool(db, cfg)

	c.schemaName = cfg.Schema
	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *MySQL) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (c *MySQL) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// CurrentSchema reports the configured schema, falling back to the
// connection's selected database on first use.
func (c *MySQL) CurrentSchema(ctx context.Context) (string, error) {
	if c.schemaName != "" {
		return c.schemaName, nil
	}
	var name sql.NullString
	if err := c.db.GetContext(ctx, &name, `SELECT DATABASE()`); err != nil {
		return "", fmt.Errorf("current schema: %w", err)
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("no database selected; name one in the DSN or configuration")
	}
	c.schemaName = name.String
	return c.schemaName, nil
}

// DefaultKeyType is the type AUTO_INCREMENT keys get.
func (c *MySQL) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}
}

// Dialect returns the dialect identifier.
func (c *MySQL) Dialect() string { return "mysql" }
