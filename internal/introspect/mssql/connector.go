// Package mssql introspects SQL Server databases through
// INFORMATION_SCHEMA and the sys catalog views.
package mssql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// MSSQL implements introspect.Introspector for SQL Server.
type MSSQL struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected MSSQL introspector.
func New() introspect.Introspector { return &MSSQL{} }

// Connect opens a connection pool.
func (c *MSSQL) Connect(cfg introspect.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlserver", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mssql connect: %w", err)
	}
	introspect.ConfigurePool(db, cfg)

	c.schemaName = cfg.Schema
	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *MSSQL) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (c *MSSQL) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// CurrentSchema reports the configured schema, falling back to the login's
// default schema (usually dbo) on first use.
func (c *MSSQL) CurrentSchema(ctx context.Context) (string, error) {
	if c.schemaName != "" {
		return c.schemaName, nil
	}
	var name string
	if err := c.db.GetContext(ctx, &name, `SELECT SCHEMA_NAME()`); err != nil {
		return "", fmt.Errorf("current schema: %w", err)
	}
	c.schemaName = name
	return name, nil
}

// DefaultKeyType is the type IDENTITY keys get.
func (c *MSSQL) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}
}

// Dialect returns the dialect identifier.
func (c *MSSQL) Dialect() string { return "mssql" }
