// Package snowflake introspects Snowflake databases through
// INFORMATION_SCHEMA and SHOW commands.
//
// Snowflake keeps constraint membership out of the information schema,
// so primary keys, unique constraints and foreign keys are read with
// SHOW PRIMARY KEYS, SHOW UNIQUE KEYS and SHOW IMPORTED KEYS.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// Snowflake implements introspect.Introspector for Snowflake.
type Snowflake struct {
	db         *sqlx.DB
	schemaName string
}

// New creates an unconnected Snowflake introspector.
func New() introspect.Introspector { return &Snowflake{} }

// Connect opens a connection pool. When PrivateKeyPath is set the DSN is
// rewritten for JWT (key pair) authentication; the key file must be
// PEM-encoded PKCS#1 or PKCS#8.
func (c *Snowflake) Connect(cfg introspect.ConnectionConfig) error {
	dsn := cfg.DSN
	if cfg.PrivateKeyPath != "" {
		var err error
		dsn, err = buildJWTDSN(cfg.DSN, cfg.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("snowflake jwt auth: %w", err)
		}
	}

	db, err := sqlx.Connect("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("snowflake connect: %w", err)
	}
	introspect.ConfigurePool(db, cfg)

	c.schemaName = cfg.Schema
	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *Snowflake) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (c *Snowflake) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// CurrentSchema reports the configured schema, falling back to the
// session schema and then to PUBLIC.
func (c *Snowflake) CurrentSchema(ctx context.Context) (string, error) {
	if c.schemaName != "" {
		return c.schemaName, nil
	}
	var name sql.NullString
	if err := c.db.GetContext(ctx, &name, `SELECT CURRENT_SCHEMA()`); err != nil {
		return "", fmt.Errorf("current schema: %w", err)
	}
	if !name.Valid || name.String == "" {
		c.schemaName = "PUBLIC"
	} else {
		c.schemaName = name.String
	}
	return c.schemaName, nil
}

// DefaultKeyType is the type AUTOINCREMENT keys get.
func (c *Snowflake) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "NUMBER(38,0)"}
}

// Dialect returns the dialect identifier.
func (c *Snowflake) Dialect() string { return "snowflake" }

// quoteIdent double-quotes an identifier for SHOW commands, which cannot
// take bind parameters. Quoted identifiers are case-sensitive.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
