package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// columnRow holds one row of INFORMATION_SCHEMA.COLUMNS.
type columnRow struct {
	ColumnName string  `db:"COLUMN_NAME"`
	DataType   string  `db:"DATA_TYPE"`
	ColumnType string  `db:"COLUMN_TYPE"`
	IsNullable string  `db:"IS_NULLABLE"`
	Default    *string `db:"COLUMN_DEFAULT"`
	Extra      string  `db:"EXTRA"`
}

// uniqueRow holds one member of a unique index from
// INFORMATION_SCHEMA.STATISTICS. Expression members (functional indexes,
// 8.0.13+) report a NULL column name.
type uniqueRow struct {
	IndexName  string  `db:"INDEX_NAME"`
	ColumnName *string `db:"COLUMN_NAME"`
	Expression *string `db:"EXPRESSION"`
}

// refRow holds one column pair of a foreign key.
type refRow struct {
	ConstraintName   string `db:"CONSTRAINT_NAME"`
	ColumnName       string `db:"COLUMN_NAME"`
	ReferencedSchema string `db:"REFERENCED_TABLE_SCHEMA"`
	ReferencedTable  string `db:"REFERENCED_TABLE_NAME"`
	ReferencedColumn string `db:"REFERENCED_COLUMN_NAME"`
	DeleteRule       string `db:"DELETE_RULE"`
	UpdateRule       string `db:"UPDATE_RULE"`
}

// ListTables returns the base table names of the given schema, sorted.
func (c *MySQL) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	target := schemaName
	if target == "" {
		target = current
	}

	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

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
func (c *MySQL) AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	schemaName := name.Schema
	if schemaName == "" {
		schemaName = current
	}

	const existsQuery = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`

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

func (c *MySQL) fetchColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	const query = `SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	var rows []columnRow
	if err := c.db.SelectContext(ctx, &rows, query, schemaName, tableName); err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:          row.ColumnName,
			Type:          mapType(row.DataType, row.ColumnType),
			Nullable:      row.IsNullable == "YES",
			Default:       row.Default,
			AutoIncrement: strings.Contains(row.Extra, "auto_increment"),
		})
	}
	return columns, nil
}

// fetchUniques reads unique indexes from STATISTICS. MySQL does not
// distinguish unique constraints from unique indexes, so everything except
// PRIMARY reports as a constraint.
func (c *MySQL) fetchUniques(ctx context.Context, schemaName, tableName string) ([]schema.Unique, error) {
	const query = `SELECT INDEX_NAME, COLUMN_NAME, EXPRESSION
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND NON_UNIQUE = 0
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`

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
			kind := schema.UniqueConstraint
			if row.IndexName == "PRIMARY" {
				kind = schema.UniquePrimary
			}
			uniques = append(uniques, schema.Unique{Kind: kind, Name: row.IndexName})
			idx = len(uniques) - 1
			byName[row.IndexName] = idx
		}
		var field schema.FieldRef
		switch {
		case row.ColumnName != nil && *row.ColumnName != "":
			field.Column = *row.ColumnName
		case row.Expression != nil:
			field.Expr = *row.Expression
		}
		uniques[idx].Fields = append(uniques[idx].Fields, field)
	}
	return uniques
}

func (c *MySQL) fetchReferences(ctx context.Context, schemaName, tableName, current string) ([]schema.Reference, error) {
	const query = `SELECT
			kcu.CONSTRAINT_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_SCHEMA,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME,
			rc.DELETE_RULE,
			rc.UPDATE_RULE
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
			ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ?
			AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	var rows []refRow
	if err := c.db.SelectContext(ctx, &rows, query, schemaName, tableName); err != nil {
		return nil, err
	}

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
	return refs, nil
}
