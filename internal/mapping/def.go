package mapping

// Mapping documents bind generated entities back onto their tables. Key
// order in the serialized form is canonical: entity, name, dbName, schema,
// autoKey, keyDbName, type, embeddedType, columns, keys, fields, uniques,
// followed by default, onDelete, onUpdate, optional, key. Struct fields below
// are declared in that order so the emitted documents stay byte-stable
// across runs.

// AutoKey designations. Synthetic means the backend supplies the row
// identity itself and no column is consumed; None means the named column in
// KeyDBName is the primary key.
const (
	AutoKeySynthetic = "auto"
	AutoKeyNone      = "none"
)

// FieldKind says how a field binds to the table.
type FieldKind int

const (
	FieldColumn   FieldKind = iota // plain column mapping
	FieldKeyRef                    // typed reference to another entity's key
	FieldEmbedded                  // composite of sub-fields
)

// Definition is the generated mapping for one table.
type Definition struct {
	Entity    string      `yaml:"entity" json:"entity"`
	Name      string      `yaml:"name,omitempty" json:"name,omitempty"`
	DBName    string      `yaml:"dbName,omitempty" json:"dbName,omitempty"`
	Schema    string      `yaml:"schema,omitempty" json:"schema,omitempty"`
	AutoKey   string      `yaml:"autoKey,omitempty" json:"autoKey,omitempty"`
	KeyDBName string      `yaml:"keyDbName,omitempty" json:"keyDbName,omitempty"`
	Keys      []Key       `yaml:"keys,omitempty" json:"keys,omitempty"`
	Fields    []Field     `yaml:"fields,omitempty" json:"fields,omitempty"`
	Uniques   []UniqueDef `yaml:"uniques,omitempty" json:"uniques,omitempty"`
}

// Key is a generated key type for one referenced (table, unique) pair.
// Keys appear on the definition of the table they identify, and only when
// at least one resolved reference in the closure uses them.
type Key struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// Field is one constructor member. For key references, KeyType names the
// referenced key type on the declaration side; the serialized type key only
// ever carries a database-side override.
type Field struct {
	Name         string    `yaml:"name" json:"name"`
	DBName       string    `yaml:"dbName,omitempty" json:"dbName,omitempty"`
	Type         string    `yaml:"type,omitempty" json:"type,omitempty"`
	EmbeddedType string    `yaml:"embeddedType,omitempty" json:"embeddedType,omitempty"`
	Columns      []string  `yaml:"columns,omitempty" json:"columns,omitempty"`
	Fields       []Field   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Default      string    `yaml:"default,omitempty" json:"default,omitempty"`
	OnDelete     string    `yaml:"onDelete,omitempty" json:"onDelete,omitempty"`
	OnUpdate     string    `yaml:"onUpdate,omitempty" json:"onUpdate,omitempty"`
	Optional     bool      `yaml:"optional,omitempty" json:"optional,omitempty"`
	Kind         FieldKind `yaml:"-" json:"-"`
	KeyType      string    `yaml:"-" json:"-"`
}

// UniqueDef is one referenced unique-key definition on the constructor. Key
// marks it as the constructor's default key.
type UniqueDef struct {
	Name    string   `yaml:"name" json:"name"`
	DBName  string   `yaml:"dbName,omitempty" json:"dbName,omitempty"`
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Key     bool     `yaml:"key,omitempty" json:"key,omitempty"`
}

// AllColumns returns every database column the field consumes: its own
// column for plain fields, the reference group for key references, and the
// union of sub-fields for embedded composites.
func (f Field) AllColumns() []string {
	switch {
	case len(f.Columns) > 0:
		return f.Columns
	case f.DBName != "":
		return []string{f.DBName}
	}
	var cols []string
	for _, sub := range f.Fields {
		cols = append(cols, sub.AllColumns()...)
	}
	return cols
}
