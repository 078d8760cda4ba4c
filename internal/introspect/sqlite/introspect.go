package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
)

// tableInfoRow holds a row from PRAGMA table_info(). PK is the 1-based
// position of the column within the primary key, 0 for non-key columns.
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// indexListRow holds a row from PRAGMA index_list().
type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

// indexInfoRow holds a row from PRAGMA index_info(). Name is NULL for
// expression members and the rowid.
type indexInfoRow struct {
	SeqNo int     `db:"seqno"`
	CID   int     `db:"cid"`
	Name  *string `db:"name"`
}

// foreignKeyRow holds a row from PRAGMA foreign_key_list(). ID groups the
// rows of one constraint, Seq orders its column pairs. To is NULL when the
// constraint references the parent's primary key implicitly.
type foreignKeyRow struct {
	ID       int     `db:"id"`
	Seq      int     `db:"seq"`
	Table    string  `db:"table"`
	From     string  `db:"from"`
	To       *string `db:"to"`
	OnUpdate string  `db:"on_update"`
	OnDelete string  `db:"on_delete"`
	Match    string  `db:"match"`
}

// ListTables returns the table names in sqlite_master, sorted. The schema
// argument is ignored; attached databases are not walked.
func (c *SQLite) ListTables(ctx context.Context, _ string) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// AnalyzeTable fetches one table. A missing table returns (nil, nil).
func (c *SQLite) AnalyzeTable(ctx context.Context, name schema.QualifiedName) (*schema.Table, error) {
	var objType string
	err := c.db.GetContext(ctx, &objType,
		`SELECT type FROM sqlite_master WHERE type = 'table' AND name = ?`, name.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", name, err)
	}

	info, err := c.tableInfo(ctx, name.Name)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}

	columns, primary := buildColumns(info)
	uniques := make([]schema.Unique, 0, 1)
	if primary != nil {
		uniques = append(uniques, *primary)
	}

	indexUniques, err := c.fetchIndexUniques(ctx, name.Name)
	if err != nil {
		return nil, fmt.Errorf("uniques of %s: %w", name, err)
	}
	uniques = append(uniques, indexUniques...)

	refs, err := c.fetchReferences(ctx, name.Name)
	if err != nil {
		return nil, fmt.Errorf("references of %s: %w", name, err)
	}

	return &schema.Table{Name: name, Columns: columns, Uniques: uniques, Refs: refs}, nil
}

func (c *SQLite) tableInfo(ctx context.Context, tableName string) ([]tableInfoRow, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName))
	var rows []tableInfoRow
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// buildColumns converts table_info rows and extracts the primary key group.
// A lone INTEGER primary key column is a rowid alias and therefore counts as
// auto-incrementing.
func buildColumns(info []tableInfoRow) ([]schema.Column, *schema.Unique) {
	type pkMember struct {
		pos  int
		name string
	}
	var pk []pkMember
	for _, row := range info {
		if row.PK > 0 {
			pk = append(pk, pkMember{pos: row.PK, name: row.Name})
		}
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })

	rowidAlias := ""
	if len(pk) == 1 {
		for _, row := range info {
			if row.Name == pk[0].name && integerAffinity(row.Type) {
				rowidAlias = row.Name
			}
		}
	}

	columns := make([]schema.Column, 0, len(info))
	for _, row := range info {
		columns = append(columns, schema.Column{
			Name:          row.Name,
			Type:          mapType(row.Type),
			Nullable:      row.NotNull == 0 && row.PK == 0,
			Default:       row.Default,
			AutoIncrement: row.Name == rowidAlias && rowidAlias != "",
		})
	}

	if len(pk) == 0 {
		return columns, nil
	}
	primary := &schema.Unique{Kind: schema.UniquePrimary}
	for _, m := range pk {
		primary.Fields = append(primary.Fields, schema.FieldRef{Column: m.name})
	}
	return columns, primary
}

// fetchIndexUniques reads unique indexes from index_list. The pk origin is
// skipped (the primary group comes from table_info) and partial indexes do
// not guarantee table-wide uniqueness, so they're skipped too.
func (c *SQLite) fetchIndexUniques(ctx context.Context, tableName string) ([]schema.Unique, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName))
	var idxRows []indexListRow
	if err := c.db.SelectContext(ctx, &idxRows, query); err != nil {
		return nil, err
	}

	var uniques []schema.Unique
	for _, idx := range idxRows {
		if idx.Unique != 1 || idx.Origin == "pk" || idx.Partial == 1 {
			continue
		}

		infoQuery := fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(idx.Name))
		var infoRows []indexInfoRow
		if err := c.db.SelectContext(ctx, &infoRows, infoQuery); err != nil {
			return nil, fmt.Errorf("index_info %s: %w", idx.Name, err)
		}

		kind := schema.UniqueIndex
		if idx.Origin == "u" {
			kind = schema.UniqueConstraint
		}
		u := schema.Unique{Kind: kind, Name: idx.Name}
		for _, info := range infoRows {
			if info.Name != nil {
				u.Fields = append(u.Fields, schema.FieldRef{Column: *info.Name})
				continue
			}
			// The PRAGMA reports expression members namelessly. An opaque
			// marker keeps the group's width intact.
			u.Fields = append(u.Fields, schema.FieldRef{Expr: fmt.Sprintf("%s#%d", idx.Name, info.SeqNo)})
		}
		uniques = append(uniques, u)
	}
	return uniques, nil
}

func (c *SQLite) fetchReferences(ctx context.Context, tableName string) ([]schema.Reference, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName))
	var rows []foreignKeyRow
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Seq < rows[j].Seq
	})

	parentPKs := make(map[string][]string)
	var refs []schema.Reference
	byID := make(map[int]int)
	for _, row := range rows {
		idx, ok := byID[row.ID]
		if !ok {
			refs = append(refs, schema.Reference{
				Target:   schema.QualifiedName{Name: row.Table},
				OnDelete: introspect.NormalizeAction(row.OnDelete),
				OnUpdate: introspect.NormalizeAction(row.OnUpdate),
			})
			idx = len(refs) - 1
			byID[row.ID] = idx
		}

		parent := ""
		if row.To != nil {
			parent = *row.To
		} else {
			// An implicit reference targets the parent's primary key.
			pk, err := c.parentPrimary(ctx, row.Table, parentPKs)
			if err != nil {
				return nil, err
			}
			if row.Seq < len(pk) {
				parent = pk[row.Seq]
			}
		}
		refs[idx].Pairs = append(refs[idx].Pairs, schema.ColumnPair{Child: row.From, Parent: parent})
	}
	return refs, nil
}

func (c *SQLite) parentPrimary(ctx context.Context, tableName string, cache map[string][]string) ([]string, error) {
	if pk, ok := cache[tableName]; ok {
		return pk, nil
	}
	info, err := c.tableInfo(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", tableName, err)
	}
	_, primary := buildColumns(info)
	var pk []string
	if primary != nil {
		pk = primary.Columns()
	}
	cache[tableName] = pk
	return pk, nil
}

func integerAffinity(typeName string) bool {
	return strings.EqualFold(strings.TrimSpace(typeName), "integer") ||
		strings.EqualFold(strings.TrimSpace(typeName), "int")
}
