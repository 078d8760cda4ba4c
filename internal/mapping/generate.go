package mapping

import (
	"sort"

	"github.com/remodeldb/remodel/internal/naming"
	"github.com/remodeldb/remodel/internal/schema"
)

// Generator turns a table closure into one mapping definition per table.
// The zero value generates with the default naming strategy, an int64 auto
// key, and NO ACTION referential defaults.
type Generator struct {
	// Strategy derives all generated names. Defaults to naming.Default.
	Strategy naming.Strategy
	// DefaultKeyType is the dialect's auto-key column type, used to decide
	// whether a child column referencing an auto key needs a type override.
	DefaultKeyType schema.LogicalType
	// OnDelete and OnUpdate are the ambient referential actions; matching
	// actions on a reference are not recorded.
	OnDelete string
	OnUpdate string
}

func (g *Generator) strategy() naming.Strategy {
	if g.Strategy != nil {
		return g.Strategy
	}
	return naming.Default{}
}

func (g *Generator) keyType() schema.LogicalType {
	if g.DefaultKeyType != (schema.LogicalType{}) {
		return g.DefaultKeyType
	}
	return schema.LogicalType{Kind: schema.KindInt64}
}

// Generate produces mapping definitions for every table in the model, in
// table-name order. Any resolution error aborts the whole run; no partial
// output is returned.
func (g *Generator) Generate(model schema.Model) ([]Definition, error) {
	strategy := g.strategy()
	res := newResolver(strategy, model, g.keyType(), g.OnDelete, g.OnUpdate)

	names := model.Names()

	// Resolve every table's fields first so key usage is known before
	// definitions are assembled.
	fields := make(map[schema.QualifiedName][]Field, len(names))
	autoCols := make(map[schema.QualifiedName]string, len(names))
	for _, name := range names {
		t := model[name]

		autoCol, hasAuto, err := t.AutoIncrementColumn()
		if err != nil {
			return nil, err
		}
		if hasAuto {
			autoCols[name] = autoCol.Name
		}

		tableFields, err := g.resolveFields(res, t, autoCol.Name, hasAuto)
		if err != nil {
			return nil, err
		}
		fields[name] = tableFields
	}

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, err := g.assemble(res, model[name], fields[name], autoCols)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// resolveFields walks the table's columns in declaration order. A reference
// group is emitted at the position of its first column and consumes all its
// columns at once; the designated auto-key column is consumed by the key and
// never becomes a field.
func (g *Generator) resolveFields(res *resolver, t *schema.Table, autoCol string, hasAuto bool) ([]Field, error) {
	strategy := g.strategy()
	consumed := make(map[string]bool, len(t.Columns))
	if hasAuto {
		consumed[autoCol] = true
	}

	var fields []Field
	for _, col := range t.Columns {
		if consumed[col.Name] {
			continue
		}

		ref, err := t.ReferenceFor(col.Name)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			f, err := res.resolveReference(t, ref)
			if err != nil {
				return nil, err
			}
			for _, c := range ref.ChildColumns() {
				consumed[c] = true
			}
			fields = append(fields, f)
			continue
		}

		consumed[col.Name] = true
		f := Field{
			Kind:     FieldColumn,
			Name:     strategy.FieldName(t, col.Name),
			DBName:   col.Name,
			Type:     col.Type.Name(),
			Optional: col.Nullable,
		}
		if col.Default != nil {
			f.Default = *col.Default
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// assemble builds the final definition for one table from its resolved
// fields and the closure-wide key usage.
func (g *Generator) assemble(res *resolver, t *schema.Table, fields []Field, autoCols map[schema.QualifiedName]string) (Definition, error) {
	strategy := g.strategy()
	autoCol, hasAuto := autoCols[t.Name]

	def := Definition{
		Entity: strategy.EntityName(t),
		Name:   strategy.ConstructorName(t),
		DBName: t.Name.Name,
		Schema: t.Name.Schema,
		Fields: fields,
	}
	if hasAuto {
		def.AutoKey = AutoKeyNone
		def.KeyDBName = autoCol
	} else {
		def.AutoKey = AutoKeySynthetic
	}

	used := make([]schema.Unique, len(res.used[t.Name]))
	copy(used, res.used[t.Name])
	sort.SliceStable(used, func(i, j int) bool {
		if used[i].Name != used[j].Name {
			return used[i].Name < used[j].Name
		}
		return used[i].Kind < used[j].Kind
	})

	for _, u := range used {
		def.Keys = append(def.Keys, Key{
			Name:    strategy.KeyTypeName(t, u),
			Columns: u.Columns(),
		})
	}

	var canonical schema.Unique
	haveCanonical := false
	if len(t.Uniques) > 0 {
		c, err := strategy.CanonicalUnique(t, t.Uniques)
		if err != nil {
			return Definition{}, err
		}
		canonical = c
		haveCanonical = true
	}

	ordinal := 0
	for _, u := range used {
		if u.Kind == schema.UniquePrimary {
			continue
		}
		ordinal++
		ud := UniqueDef{
			Name:    strategy.UniqueName(t, ordinal, u),
			DBName:  u.Name,
			Columns: u.Columns(),
		}
		if hasAuto && haveCanonical && sameUnique(u, canonical) {
			ud.Key = true
		}
		def.Uniques = append(def.Uniques, ud)
	}

	return def, nil
}

func sameUnique(a, b schema.Unique) bool {
	return a.Kind == b.Kind && a.Name == b.Name && a.SameGroup(b)
}
