// Package gen renders mapping definitions as Go entity declarations: one
// record type per mapped table, key types for every referenced unique, and
// struct types for embedded composites.
package gen

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/naming"
)

const header = "// Code generated by remodel. DO NOT EDIT.\n\n"

// Options controls the generated package.
type Options struct {
	// Package is the generated package name. Defaults to "entities".
	Package string
	// IntWidth is the width of synthetic key types, 32 or 64. Defaults to 64.
	IntWidth int
}

func (o Options) pkg() string {
	if o.Package != "" {
		return o.Package
	}
	return "entities"
}

func (o Options) keyGoType() (string, error) {
	switch o.IntWidth {
	case 0, 64:
		return "int64", nil
	case 32:
		return "int32", nil
	}
	return "", fmt.Errorf("unsupported key int width %d (want 32 or 64)", o.IntWidth)
}

// File is one generated Go source file.
type File struct {
	Name    string
	Content []byte
}

// Build renders definitions into a single gofmt-formatted source file. The
// definitions must come from the generator: parsed mapping documents lose the
// declaration-side attributes rendering depends on. On a formatting failure
// the unformatted source is returned alongside the error to aid debugging.
func Build(defs []mapping.Definition, opts Options) (*File, error) {
	keyGoType, err := opts.keyGoType()
	if err != nil {
		return nil, err
	}

	e := &emitter{keyGoType: keyGoType, declared: make(map[string]bool)}
	var body strings.Builder
	for _, def := range defs {
		if err := e.entity(&body, def); err != nil {
			return nil, err
		}
	}

	var src strings.Builder
	src.WriteString(header)
	fmt.Fprintf(&src, "package %s\n\n", opts.pkg())
	if e.needsTime {
		src.WriteString("import \"time\"\n\n")
	}
	src.WriteString(body.String())

	name := opts.pkg() + ".go"
	formatted, err := format.Source([]byte(src.String()))
	if err != nil {
		return &File{Name: name, Content: []byte(src.String())}, fmt.Errorf("format generated source: %w", err)
	}
	return &File{Name: name, Content: formatted}, nil
}

type emitter struct {
	keyGoType string
	needsTime bool
	declared  map[string]bool
}

func (e *emitter) declare(name string) error {
	if e.declared[name] {
		return fmt.Errorf("duplicate generated type %s", name)
	}
	e.declared[name] = true
	return nil
}

func (e *emitter) entity(w *strings.Builder, def mapping.Definition) error {
	// The synthetic identity type. A referenced primary key in def.Keys
	// carries the same name and its column-typed declaration wins.
	entityKey := def.Entity + "Key"
	shadowed := false
	for _, k := range def.Keys {
		if k.Name == entityKey {
			shadowed = true
		}
	}
	if !shadowed && def.AutoKey != "" {
		if err := e.declare(entityKey); err != nil {
			return err
		}
		fmt.Fprintf(w, "// %s identifies a %s row.\ntype %s %s\n\n", entityKey, def.Entity, entityKey, e.keyGoType)
	}

	for _, k := range def.Keys {
		if err := e.keyDecl(w, def, k); err != nil {
			return err
		}
	}
	for _, f := range def.Fields {
		if f.Kind == mapping.FieldEmbedded {
			if err := e.embeddedDecl(w, def, f); err != nil {
				return err
			}
		}
	}

	if err := e.declare(def.Entity); err != nil {
		return err
	}
	fmt.Fprintf(w, "// %s is a row of %s.\ntype %s struct {\n", def.Entity, tableRef(def), def.Entity)
	for _, f := range def.Fields {
		e.fieldDecl(w, f)
	}
	w.WriteString("}\n\n")
	return nil
}

func (e *emitter) keyDecl(w *strings.Builder, def mapping.Definition, k mapping.Key) error {
	if err := e.declare(k.Name); err != nil {
		return err
	}

	if len(k.Columns) == 1 {
		fmt.Fprintf(w, "// %s identifies a %s row by %s.\ntype %s %s\n\n",
			k.Name, def.Entity, k.Columns[0], k.Name, e.columnGoType(def, k.Columns[0]))
		return nil
	}

	fmt.Fprintf(w, "// %s identifies a %s row by (%s).\ntype %s struct {\n",
		k.Name, def.Entity, strings.Join(k.Columns, ", "), k.Name)
	for _, col := range k.Columns {
		fmt.Fprintf(w, "\t%s %s `db:%q`\n", naming.UpperCamel(col), e.columnGoType(def, col), col)
	}
	w.WriteString("}\n\n")
	return nil
}

func (e *emitter) embeddedDecl(w *strings.Builder, def mapping.Definition, f mapping.Field) error {
	if err := e.declare(f.EmbeddedType); err != nil {
		return err
	}

	fmt.Fprintf(w, "// %s groups the %s columns of %s.\ntype %s struct {\n",
		f.EmbeddedType, strings.Join(f.AllColumns(), ", "), tableRef(def), f.EmbeddedType)
	for _, sub := range f.Fields {
		e.fieldDecl(w, sub)
	}
	w.WriteString("}\n\n")
	return nil
}

func (e *emitter) fieldDecl(w *strings.Builder, f mapping.Field) {
	var typ string
	switch f.Kind {
	case mapping.FieldKeyRef:
		typ = f.KeyType
	case mapping.FieldEmbedded:
		typ = f.EmbeddedType
	default:
		typ = e.goType(f.Type)
	}
	if f.Optional {
		typ = "*" + typ
	}

	if f.DBName != "" {
		fmt.Fprintf(w, "\t%s %s `db:%q`\n", naming.UpperCamel(f.Name), typ, f.DBName)
		return
	}
	fmt.Fprintf(w, "\t%s %s\n", naming.UpperCamel(f.Name), typ)
}

// columnGoType resolves the Go type of a database column through the field
// bound to it. Columns bound by a key reference fall back to the synthetic
// key width unless the reference carries a type override.
func (e *emitter) columnGoType(def mapping.Definition, column string) string {
	f, ok := fieldForColumn(def.Fields, column)
	if !ok {
		return e.keyGoType
	}
	if f.Kind == mapping.FieldKeyRef && f.Type == "" {
		return e.keyGoType
	}
	return e.goType(f.Type)
}

func fieldForColumn(fields []mapping.Field, column string) (mapping.Field, bool) {
	for _, f := range fields {
		if f.DBName == column {
			return f, true
		}
		for _, c := range f.Columns {
			if c == column {
				return f, true
			}
		}
		if sub, ok := fieldForColumn(f.Fields, column); ok {
			return sub, true
		}
	}
	return mapping.Field{}, false
}

func (e *emitter) goType(logical string) string {
	switch logical {
	case "string":
		return "string"
	case "int32":
		return "int32"
	case "int64":
		return "int64"
	case "float":
		return "float64"
	case "bool":
		return "bool"
	case "date", "time", "timestamp", "timestamptz":
		e.needsTime = true
		return "time.Time"
	case "bytes":
		return "[]byte"
	}
	// Dialect-specific types render as text.
	return "string"
}

func tableRef(def mapping.Definition) string {
	if def.Schema != "" {
		return def.Schema + "." + def.DBName
	}
	return def.DBName
}
