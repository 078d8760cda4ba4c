// Package postgres introspects PostgreSQL databases through
// information_schema and the pg_catalog.
package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// Postgres implements introspect.Introspector for PostgreSQL.
type Postgres struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected Postgres introspector.
func New() introspect.Introspector { return &Postgres{} }

// Connect opens a pgx connection pool and stores the schema unqualified
// names resolve against.
func (c *Postgres) Connect(cfg introspect.ConnectionConfig) error {
	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	introspect.ConfigurePool(db, cfg)

	c.schemaName = cfg.Schema
	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *Postgres) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (c *Postgres) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// CurrentSchema reports the configured schema, falling back to the server's
// current_schema() on first use.
func (c *Postgres) CurrentSchema(ctx context.Context) (string, error) {
	if c.schemaName != "" {
		return c.schemaName, nil
	}
	var name string
	if err := c.db.GetContext(ctx, &name, `SELECT current_schema()`); err != nil {
		return "", fmt.Errorf("current schema: %w", err)
	}
	c.schemaName = name
	return name, nil
}

// DefaultKeyType is the type bigserial keys get.
func (c *Postgres) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "int8"}
}

// Dialect returns the dialect identifier.
func (c *Postgres) Dialect() string { return "postgres" }
