package schema

import (
	"fmt"
	"sort"
	"strings"
)

// QualifiedName identifies a table by schema and name. An empty schema means
// the connection's default schema. Values are comparable and used as map keys
// throughout the pipeline.
type QualifiedName struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// String renders "schema.name", or just "name" for the default schema.
func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Name
	}
	return q.Schema + "." + q.Name
}

// ParseQualifiedName splits "schema.table" on the first dot. A bare name maps
// to the default schema.
func ParseQualifiedName(s string) QualifiedName {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return QualifiedName{Schema: s[:i], Name: s[i+1:]}
	}
	return QualifiedName{Name: s}
}

// TypeKind enumerates the portable column types the engine understands.
// Anything a dialect mapper cannot classify lands on KindOther with the raw
// database type preserved in LogicalType.Raw.
type TypeKind int

const (
	KindOther TypeKind = iota
	KindString
	KindInt32
	KindInt64
	KindFloat
	KindBool
	KindDate
	KindTime
	KindTimestamp
	KindTimestampTZ
	KindBytes
)

var kindNames = map[TypeKind]string{
	KindOther:       "other",
	KindString:      "string",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindFloat:       "float",
	KindBool:        "bool",
	KindDate:        "date",
	KindTime:        "time",
	KindTimestamp:   "timestamp",
	KindTimestampTZ: "timestamptz",
	KindBytes:       "bytes",
}

func (k TypeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "other"
}

// LogicalType pairs a portable kind with the raw type string the catalog
// reported. Raw is authoritative for KindOther and informational otherwise.
type LogicalType struct {
	Kind TypeKind `json:"kind"`
	Raw  string   `json:"raw,omitempty"`
}

// Name returns the portable type name, falling back to the raw database type
// for KindOther.
func (t LogicalType) Name() string {
	if t.Kind == KindOther && t.Raw != "" {
		return t.Raw
	}
	return t.Kind.String()
}

// Column describes a single column as reported by the catalog.
type Column struct {
	Name          string      `json:"name"`
	Type          LogicalType `json:"type"`
	Nullable      bool        `json:"nullable"`
	Default       *string     `json:"default,omitempty"`
	AutoIncrement bool        `json:"auto_increment,omitempty"`
}

// FieldRef is one member of a unique definition: either a plain column or an
// opaque expression (functional indexes). Exactly one of the two is set.
type FieldRef struct {
	Column string `json:"column,omitempty"`
	Expr   string `json:"expr,omitempty"`
}

func (r FieldRef) String() string {
	if r.Column != "" {
		return r.Column
	}
	return r.Expr
}

// UniqueKind distinguishes how a unique column group was declared.
type UniqueKind int

const (
	UniquePrimary    UniqueKind = iota // primary key
	UniqueConstraint                   // declared unique constraint
	UniqueIndex                        // unique index
)

var uniqueKindNames = map[UniqueKind]string{
	UniquePrimary:    "primary",
	UniqueConstraint: "constraint",
	UniqueIndex:      "index",
}

func (k UniqueKind) String() string {
	if name, ok := uniqueKindNames[k]; ok {
		return name
	}
	return "constraint"
}

// Unique is one unique column group on a table: a primary key, a unique
// constraint, or a unique index.
type Unique struct {
	Kind   UniqueKind `json:"kind"`
	Name   string     `json:"name,omitempty"`
	Fields []FieldRef `json:"fields"`
}

// Columns returns the plain column members in declaration order, skipping
// expression members.
func (u Unique) Columns() []string {
	cols := make([]string, 0, len(u.Fields))
	for _, f := range u.Fields {
		if f.Column != "" {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// SameGroup reports whether two uniques cover the same field set, ignoring
// member order and how the group was declared.
func (u Unique) SameGroup(v Unique) bool {
	if len(u.Fields) != len(v.Fields) {
		return false
	}
	set := make(map[FieldRef]int, len(u.Fields))
	for _, f := range u.Fields {
		set[f]++
	}
	for _, f := range v.Fields {
		if set[f] == 0 {
			return false
		}
		set[f]--
	}
	return true
}

// ColumnPair ties one child foreign-key column to the parent column it
// references.
type ColumnPair struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// Reference is one foreign key on a child table. Pairs holds the child/parent
// column pairs in constraint order. OnDelete and OnUpdate are empty when the
// catalog default action applies.
type Reference struct {
	Name     string        `json:"name,omitempty"`
	Target   QualifiedName `json:"target"`
	Pairs    []ColumnPair  `json:"pairs"`
	OnDelete string        `json:"on_delete,omitempty"`
	OnUpdate string        `json:"on_update,omitempty"`
}

// ChildColumns returns the referencing columns in constraint order.
func (r Reference) ChildColumns() []string {
	cols := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		cols[i] = p.Child
	}
	return cols
}

// ParentColumns returns the referenced columns in constraint order.
func (r Reference) ParentColumns() []string {
	cols := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		cols[i] = p.Parent
	}
	return cols
}

// Table is the immutable snapshot of one introspected table. It is produced
// once by an introspector and never modified afterwards.
type Table struct {
	Name    QualifiedName `json:"name"`
	Columns []Column      `json:"columns"`
	Uniques []Unique      `json:"uniques,omitempty"`
	Refs    []Reference   `json:"refs,omitempty"`
}

// Column returns the named column, or ErrNotFound when the table has no such
// column.
func (t *Table) Column(name string) (Column, error) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("column %q of %s: %w", name, t.Name, ErrNotFound)
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	_, err := t.Column(name)
	return err == nil
}

// PrimaryKey returns the table's primary key group, or nil when the table has
// none.
func (t *Table) PrimaryKey() *Unique {
	for i := range t.Uniques {
		if t.Uniques[i].Kind == UniquePrimary {
			return &t.Uniques[i]
		}
	}
	return nil
}

// AutoIncrementColumn returns the single auto-incrementing column, if any.
// More than one such column is a MultipleAutoKeysError.
func (t *Table) AutoIncrementColumn() (Column, bool, error) {
	var found []Column
	for _, c := range t.Columns {
		if c.AutoIncrement {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return Column{}, false, nil
	case 1:
		return found[0], true, nil
	}
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.Name
	}
	return Column{}, false, &MultipleAutoKeysError{Table: t.Name, Columns: names}
}

// ReferenceFor returns the foreign key whose child side contains the named
// column, or nil when the column is not referencing. A column claimed by more
// than one foreign key is an AmbiguousColumnError.
func (t *Table) ReferenceFor(column string) (*Reference, error) {
	var found *Reference
	for i := range t.Refs {
		for _, p := range t.Refs[i].Pairs {
			if p.Child != column {
				continue
			}
			if found != nil {
				return nil, &AmbiguousColumnError{Table: t.Name, Column: column}
			}
			found = &t.Refs[i]
			break
		}
	}
	return found, nil
}

// Model maps qualified names to introspected tables. It is the working set
// accumulated by closure computation and consumed by mapping generation.
// Entries are only ever added, never replaced or removed.
type Model map[QualifiedName]*Table

// Names returns the model's table names sorted by their rendered form, for
// deterministic iteration.
func (m Model) Names() []QualifiedName {
	names := make([]QualifiedName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
	return names
}

// Tables returns the model's tables in name order.
func (m Model) Tables() []*Table {
	tables := make([]*Table, 0, len(m))
	for _, name := range m.Names() {
		tables = append(tables, m[name])
	}
	return tables
}
