package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// columnRow holds one row of information_schema.columns.
type columnRow struct {
	ColumnName string  `db:"column_name"`
	DataType   string  `db:"data_type"`
	UDTName    string  `db:"udt_name"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
	IsIdentity string  `db:"is_identity"`
}

// uniqueRow holds one member of a unique index, primary keys included.
type uniqueRow struct {
	IndexName       string `db:"index_name"`
	ColumnName      string `db:"column_name"`
	Expression      string `db:"expression"`
	IsPrimary       bool   `db:"is_primary"`
	BacksConstraint bool   `db:"backs_constraint"`
}

// refRow holds one column pair of a foreign key.
type refRow struct {
	ConstraintName   string `db:"constraint_name"`
	ColumnName       string `db:"column_name"`
	ReferencedSchema string `db:"referenced_schema"`
	ReferencedTable  string `db:"referenced_table"`
	ReferencedColumn string `db:"referenced_column"`
	DeleteRule       string `db:"delete_rule"`
	UpdateRule       string `db:"update_rule"`
}

// ListTables returns the base table names of the given schema, sorted.
// Tables outside the default schema come back qualified.
func (c *Postgres) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	target := schemaName
	if target == "" {
		target = current
	}

	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, target); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if target != current {
		for i, n := range names {
			names[i] = target + "." + n
		}
	}
	return names, nil
}

// AnalyzeTable fetches one table. A missing table returns (nil, nil).
func (c *Postgres) AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	schemaName := name.Schema
	if schemaName == "" {
		schemaName = current
	}

	const existsQuery = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`

	var found string
	if err := c.db.GetContext(ctx, &found, existsQuery, schemaName, name.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("check table %s: %w", name, err)
	}

	columns, err := c.fetchColumns(ctx, schemaName, name.Name)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}
	uniques, err := c.fetchUniques(ctx, schemaName, name.Name)
	if err != nil {
		return nil, fmt.Errorf("uniques of %s: %w", name, err)
	}
	refs, err := c.fetchReferences(ctx, schemaName, name.Name, current)
	if err != nil {
		return nil, fmt.Errorf("references of %s: %w", name, err)
	}

	return &schema.Table{Name: name, Columns: columns, Uniques: uniques, Refs: refs}, nil
}

func (c *Postgres) fetchColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	const query = `SELECT column_name, data_type, udt_name, is_nullable, column_default, is_identity
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	var rows []columnRow
	if err := c.db.SelectContext(ctx, &rows, query, schemaName, tableName); err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		auto := row.IsIdentity == "YES" ||
			(row.Default != nil && strings.Contains(*row.Default, "nextval("))
		columns = append(columns, schema.Column{
			Name:          row.ColumnName,
			Type:          mapType(row.UDTName, row.DataType),
			Nullable:      row.IsNullable == "YES",
			Default:       row.Default,
			AutoIncrement: auto,
		})
	}
	return columns, nil
}

// fetchUniques reads every non-partial unique index from pg_index, so one
// query covers primary keys, unique constraints, and plain unique indexes.
// pg_constraint rows sharing the index distinguish the first two; expression
// members surface through pg_get_indexdef.
func (c *Postgres) fetchUniques(ctx context.Context, schemaName, tableName string) ([]schema.Unique, error) {
	const query = `SELECT
			ic.relname AS index_name,
			COALESCE(a.attname, '') AS column_name,
			CASE WHEN i.indkey[k.ord-1] = 0
				THEN pg_get_indexdef(i.indexrelid, k.ord, true)
				ELSE '' END AS expression,
			i.indisprimary AS is_primary,
			EXISTS (
				SELECT 1 FROM pg_constraint con
				WHERE con.conindid = i.indexrelid AND con.contype IN ('p', 'u')
			) AS backs_constraint
		FROM pg_index i
		JOIN pg_class tc ON tc.oid = i.indrelid
		JOIN pg_namespace ns ON ns.oid = tc.relnamespace
		JOIN pg_class ic ON ic.oid = i.indexrelid
		CROSS JOIN LATERAL generate_series(1, i.indnkeyatts::int) AS k(ord)
		LEFT JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = i.indkey[k.ord-1]
		WHERE i.indisunique AND i.indpred IS NULL
			AND ns.nspname = $1 AND tc.relname = $2
		ORDER BY ic.relname, k.ord`

	var rows []uniqueRow
	if err := c.db.SelectContext(ctx, &rows, query, schemaName, tableName); err != nil {
		return nil, err
	}
	return groupUniques(rows), nil
}

func groupUniques(rows []uniqueRow) []schema.Unique {
	var uniques []schema.Unique
	byName := make(map[string]int)
	for _, row := range rows {
		idx, ok := byName[row.IndexName]
		if !ok {
			kind := schema.UniqueIndex
			switch {
			case row.IsPrimary:
				kind = schema.UniquePrimary
			case row.BacksConstraint:
				kind = schema.UniqueConstraint
			}
			uniques = append(uniques, schema.Unique{Kind: kind, Name: row.IndexName})
			idx = len(uniques) - 1
			byName[row.IndexName] = idx
		}
		field := schema.FieldRef{Column: row.ColumnName}
		if row.ColumnName == "" {
			field = schema.FieldRef{Expr: row.Expression}
		}
		uniques[idx].Fields = append(uniques[idx].Fields, field)
	}
	return uniques
}

// fetchReferences joins key_column_usage against itself through
// referential_constraints, pairing child and parent columns by
// position_in_unique_constraint so composite keys keep their order.
func (c *Postgres) fetchReferences(ctx context.Context, schemaName, tableName, current string) ([]schema.Reference, error) {
	const query = `SELECT
			rc.constraint_name,
			kcu.column_name,
			kcu2.table_schema AS referenced_schema,
			kcu2.table_name AS referenced_table,
			kcu2.column_name AS referenced_column,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage kcu2
			ON kcu2.constraint_schema = rc.unique_constraint_schema
			AND kcu2.constraint_name = rc.unique_constraint_name
			AND kcu2.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = $1 AND kcu.table_name = $2
		ORDER BY rc.constraint_name, kcu.ordinal_position`

	var rows []refRow
	if err := c.db.SelectContext(ctx, &rows, query, schemaName, tableName); err != nil {
		return nil, err
	}
	return groupReferences(rows, current), nil
}

func groupReferences(rows []refRow, current string) []schema.Reference {
	var refs []schema.Reference
	byName := make(map[string]int)
	for _, row := range rows {
		idx, ok := byName[row.ConstraintName]
		if !ok {
			target := schema.QualifiedName{Name: row.ReferencedTable}
			if row.ReferencedSchema != current {
				target.Schema = row.ReferencedSchema
			}
			refs = append(refs, schema.Reference{
				Name:     row.ConstraintName,
				Target:   target,
				OnDelete: introspect.NormalizeAction(row.DeleteRule),
				OnUpdate: introspect.NormalizeAction(row.UpdateRule),
			})
			idx = len(refs) - 1
			byName[row.ConstraintName] = idx
		}
		refs[idx].Pairs = append(refs[idx].Pairs, schema.ColumnPair{Child: row.ColumnName, Parent: row.ReferencedColumn})
	}
	return refs
}
