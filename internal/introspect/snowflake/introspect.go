package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

type columnRow struct {
	Name     string  `db:"COLUMN_NAME"`
	DataType string  `db:"DATA_TYPE"`
	Nullable string  `db:"IS_NULLABLE"`
	Default  *string `db:"COLUMN_DEFAULT"`
	Scale    *int64  `db:"NUMERIC_SCALE"`
}

// keyRow is one member of a primary or unique key as reported by
// SHOW PRIMARY KEYS / SHOW UNIQUE KEYS.
type keyRow struct {
	Constraint string
	Column     string
	Seq        int
}

// importedKeyRow is one column pair of a foreign key as reported by
// SHOW IMPORTED KEYS.
type importedKeyRow struct {
	Name         string
	Seq          int
	ChildColumn  string
	ParentSchema string
	ParentTable  string
	ParentColumn string
	DeleteRule   string
	UpdateRule   string
}

// ListTables returns the base table names of the given schema, sorted.
// Tables outside the default schema come back qualified.
func (c *Snowflake) ListTables(ctx context.Context, schemaName string) ([]string, error) {
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
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
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
func (c *Snowflake) AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error) {
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
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, schemaName, name.Name)
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

func (c *Snowflake) fetchColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	var rows []columnRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, NUMERIC_SCALE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", schemaName, tableName, err)
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:          row.Name,
			Type:          mapType(row.DataType, row.Scale),
			Nullable:      row.Nullable == "YES",
			Default:       row.Default,
			AutoIncrement: isAutoIncrement(row.Default),
		})
	}
	return columns, nil
}

// isAutoIncrement detects AUTOINCREMENT and IDENTITY columns, which
// Snowflake exposes only through the column default expression.
func isAutoIncrement(def *string) bool {
	if def == nil {
		return false
	}
	upper := strings.ToUpper(*def)
	return strings.Contains(upper, "AUTOINCREMENT") || strings.Contains(upper, "IDENTITY")
}

func (c *Snowflake) fetchUniques(ctx context.Context, schemaName, tableName string) ([]schema.Unique, error) {
	primary, err := c.fetchKeys(ctx, "PRIMARY KEYS", schemaName, tableName)
	if err != nil {
		return nil, err
	}
	declared, err := c.fetchKeys(ctx, "UNIQUE KEYS", schemaName, tableName)
	if err != nil {
		return nil, err
	}

	// Snowflake has no unique indexes, only declared constraints.
	uniques := groupKeyRows(primary, schema.UniquePrimary)
	return append(uniques, groupKeyRows(declared, schema.UniqueConstraint)...), nil
}

// fetchKeys runs SHOW <verb> IN TABLE and collects constraint members.
// SHOW output has no fixed column order, so rows are scanned into maps.
func (c *Snowflake) fetchKeys(ctx context.Context, verb, schemaName, tableName string) ([]keyRow, error) {
	query := fmt.Sprintf(`SHOW %s IN TABLE %s.%s`, verb, quoteIdent(schemaName), quoteIdent(tableName))
	raw, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("show %s of %s.%s: %w", strings.ToLower(verb), schemaName, tableName, err)
	}
	defer raw.Close()

	var rows []keyRow
	for raw.Next() {
		row := make(map[string]interface{})
		if err := raw.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", strings.ToLower(verb), err)
		}
		constraint, _ := row["constraint_name"].(string)
		column, _ := row["column_name"].(string)
		rows = append(rows, keyRow{
			Constraint: constraint,
			Column:     column,
			Seq:        coerceInt(row["key_sequence"]),
		})
	}
	return rows, raw.Err()
}

func groupKeyRows(rows []keyRow, kind schema.UniqueKind) []schema.Unique {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Constraint != rows[j].Constraint {
			return rows[i].Constraint < rows[j].Constraint
		}
		return rows[i].Seq < rows[j].Seq
	})

	var uniques []schema.Unique
	var last string
	for _, row := range rows {
		if len(uniques) == 0 || row.Constraint != last {
			uniques = append(uniques, schema.Unique{Kind: kind, Name: row.Constraint})
			last = row.Constraint
		}
		u := &uniques[len(uniques)-1]
		u.Fields = append(u.Fields, schema.FieldRef{Column: row.Column})
	}
	return uniques
}

func (c *Snowflake) fetchReferences(ctx context.Context, schemaName, tableName, current string) ([]schema.Reference, error) {
	query := fmt.Sprintf(`SHOW IMPORTED KEYS IN TABLE %s.%s`, quoteIdent(schemaName), quoteIdent(tableName))
	raw, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("show imported keys of %s.%s: %w", schemaName, tableName, err)
	}
	defer raw.Close()

	var rows []importedKeyRow
	for raw.Next() {
		row := make(map[string]interface{})
		if err := raw.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan imported key row: %w", err)
		}
		name, _ := row["fk_name"].(string)
		childColumn, _ := row["fk_column_name"].(string)
		parentSchema, _ := row["pk_schema_name"].(string)
		parentTable, _ := row["pk_table_name"].(string)
		parentColumn, _ := row["pk_column_name"].(string)
		deleteRule, _ := row["delete_rule"].(string)
		updateRule, _ := row["update_rule"].(string)
		rows = append(rows, importedKeyRow{
			Name:         name,
			Seq:          coerceInt(row["key_sequence"]),
			ChildColumn:  childColumn,
			ParentSchema: parentSchema,
			ParentTable:  parentTable,
			ParentColumn: parentColumn,
			DeleteRule:   deleteRule,
			UpdateRule:   updateRule,
		})
	}
	if err := raw.Err(); err != nil {
		return nil, err
	}
	return groupImportedKeys(rows, current), nil
}

func groupImportedKeys(rows []importedKeyRow, current string) []schema.Reference {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Seq < rows[j].Seq
	})

	var refs []schema.Reference
	var last string
	for _, row := range rows {
		if len(refs) == 0 || row.Name != last {
			target := schema.QualifiedName{Name: row.ParentTable}
			if row.ParentSchema != current {
				target.Schema = row.ParentSchema
			}
			refs = append(refs, schema.Reference{
				Name:     row.Name,
				Target:   target,
				OnDelete: introspect.NormalizeAction(row.DeleteRule),
				OnUpdate: introspect.NormalizeAction(row.UpdateRule),
			})
			last = row.Name
		}
		ref := &refs[len(refs)-1]
		ref.Pairs = append(ref.Pairs, schema.ColumnPair{
			Child:  row.ChildColumn,
			Parent: row.ParentColumn,
		})
	}
	return refs
}

// coerceInt converts a SHOW column value to an int. The driver reports
// key_sequence as a string on some server versions and as a number on
// others.
func coerceInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	case []byte:
		i, _ := strconv.Atoi(strings.TrimSpace(string(n)))
		return i
	default:
		return 0
	}
}
