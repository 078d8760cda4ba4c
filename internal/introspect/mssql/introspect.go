package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

type columnRow struct {
	Name     string  `db:"column_name"`
	DataType string  `db:"data_type"`
	Nullable string  `db:"is_nullable"`
	Default  *string `db:"column_default"`
}

type uniqueRow struct {
	IndexName       string `db:"index_name"`
	ColumnName      string `db:"column_name"`
	IsPrimary       bool   `db:"is_primary_key"`
	BacksConstraint bool   `db:"is_unique_constraint"`
}

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
func (c *MSSQL) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	target := schemaName
	if target == "" {
		target = current
	}

	var names []string
	err = c.db.SelectContext(ctx, &names, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, target)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", target, err)
	}

	if target != current {
		for i, n := range names {
			names[i] = target + "." + n
		}
	}
	return names, nil
}

// AnalyzeTable fetches the full structure of one table. A missing table
// yields (nil, nil).
func (c *MSSQL) AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error) {
	current, err := c.CurrentSchema(ctx)
	if err != nil {
		return nil, err
	}
	schemaName := name.Schema
	if schemaName == "" {
		schemaName = current
	}

	var tableType string
	err = c.db.GetContext(ctx, &tableType, `
		SELECT TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`, schemaName, name.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", name, err)
	}

	columns, err := c.fetchColumns(ctx, schemaName, name.Name)
	if err != nil {
		return nil, err
	}
	uniques, err := c.fetchUniques(ctx, schemaName, name.Name)
	if err != nil {
		return nil, err
	}
	refs, err := c.fetchReferences(ctx, schemaName, name.Name, current)
	if err != nil {
		return nil, err
	}

	return &schema.Table{
		Name:    name,
		Columns: columns,
		Uniques: uniques,
		Refs:    refs,
	}, nil
}

func (c *MSSQL) fetchColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	var rows []columnRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT COLUMN_NAME AS column_name,
		       DATA_TYPE AS data_type,
		       IS_NULLABLE AS is_nullable,
		       COLUMN_DEFAULT AS column_default
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", schemaName, tableName, err)
	}

	identity, err := c.fetchIdentityColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:          row.Name,
			Type:          mapType(row.DataType),
			Nullable:      row.Nullable == "YES",
			Default:       row.Default,
			AutoIncrement: identity[row.Name],
		})
	}
	return columns, nil
}

// fetchIdentityColumns reads IDENTITY flags from sys.columns, which
// INFORMATION_SCHEMA does not expose.
func (c *MSSQL) fetchIdentityColumns(ctx context.Context, schemaName, tableName string) (map[string]bool, error) {
	var names []string
	err := c.db.SelectContext(ctx, &names, `
		SELECT col.name
		FROM sys.columns col
		JOIN sys.tables t ON t.object_id = col.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1 AND t.name = @p2 AND col.is_identity = 1`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("identity columns of %s.%s: %w", schemaName, tableName, err)
	}
	identity := make(map[string]bool, len(names))
	for _, name := range names {
		identity[name] = true
	}
	return identity, nil
}

// fetchUniques reads unique indexes from the sys catalog. Filtered
// indexes are skipped because they do not constrain every row.
func (c *MSSQL) fetchUniques(ctx context.Context, schemaName, tableName string) ([]schema.Unique, error) {
	var rows []uniqueRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT i.name AS index_name,
		       col.name AS column_name,
		       i.is_primary_key,
		       i.is_unique_constraint
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE s.name = @p1 AND t.name = @p2
		  AND i.is_unique = 1 AND i.has_filter = 0 AND ic.key_ordinal > 0
		ORDER BY i.name, ic.key_ordinal`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("unique indexes of %s.%s: %w", schemaName, tableName, err)
	}
	return groupUniques(rows), nil
}

func groupUniques(rows []uniqueRow) []schema.Unique {
	var uniques []schema.Unique
	var last string
	for _, row := range rows {
		if len(uniques) == 0 || row.IndexName != last {
			kind := schema.UniqueIndex
			switch {
			case row.IsPrimary:
				kind = schema.UniquePrimary
			case row.BacksConstraint:
				kind = schema.UniqueConstraint
			}
			uniques = append(uniques, schema.Unique{Kind: kind, Name: row.IndexName})
			last = row.IndexName
		}
		u := &uniques[len(uniques)-1]
		u.Fields = append(u.Fields, schema.FieldRef{Column: row.ColumnName})
	}
	return uniques
}

func (c *MSSQL) fetchReferences(ctx context.Context, schemaName, tableName, current string) ([]schema.Reference, error) {
	var rows []refRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT fk.name AS constraint_name,
		       child_col.name AS column_name,
		       parent_s.name AS referenced_schema,
		       parent_t.name AS referenced_table,
		       parent_col.name AS referenced_column,
		       fk.delete_referential_action_desc AS delete_rule,
		       fk.update_referential_action_desc AS update_rule
		FROM sys.foreign_keys fk
		JOIN sys.tables child_t ON child_t.object_id = fk.parent_object_id
		JOIN sys.schemas child_s ON child_s.schema_id = child_t.schema_id
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns child_col ON child_col.object_id = fkc.parent_object_id
		  AND child_col.column_id = fkc.parent_column_id
		JOIN sys.tables parent_t ON parent_t.object_id = fk.referenced_object_id
		JOIN sys.schemas parent_s ON parent_s.schema_id = parent_t.schema_id
		JOIN sys.columns parent_col ON parent_col.object_id = fkc.referenced_object_id
		  AND parent_col.column_id = fkc.referenced_column_id
		WHERE child_s.name = @p1 AND child_t.name = @p2
		ORDER BY fk.name, fkc.constraint_column_id`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s.%s: %w", schemaName, tableName, err)
	}
	return groupReferences(rows, current), nil
}

func groupReferences(rows []refRow, current string) []schema.Reference {
	var refs []schema.Reference
	var last string
	for _, row := range rows {
		if len(refs) == 0 || row.ConstraintName != last {
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
			last = row.ConstraintName
		}
		ref := &refs[len(refs)-1]
		ref.Pairs = append(ref.Pairs, schema.ColumnPair{
			Child:  row.ColumnName,
			Parent: row.ReferencedColumn,
		})
	}
	return refs
}
