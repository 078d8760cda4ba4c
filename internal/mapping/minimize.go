package mapping

// Minimization splits a full definition into two halves: the declaration
// skeleton (names, types, structure), which the generated source carries,
// and the minimized mapping, which keeps only the values a baseline
// convention cannot reproduce. ApplyDefaults recombines them:
//
//	ApplyDefaults(Skeleton(d), Minimize(d, conv), conv) == d
//
// holds for every definition d.

// Skeleton returns the declaration-side view of a definition: entity and
// field names, types, key types, and structure, with all database-side
// values cleared.
func Skeleton(def Definition) Definition {
	out := Definition{
		Entity: def.Entity,
		Keys:   append([]Key(nil), def.Keys...),
	}
	for _, f := range def.Fields {
		out.Fields = append(out.Fields, skeletonField(f))
	}
	for _, u := range def.Uniques {
		out.Uniques = append(out.Uniques, UniqueDef{
			Name:    u.Name,
			Columns: append([]string(nil), u.Columns...),
		})
	}
	return out
}

func skeletonField(f Field) Field {
	out := Field{
		Name:         f.Name,
		Kind:         f.Kind,
		KeyType:      f.KeyType,
		EmbeddedType: f.EmbeddedType,
		Optional:     f.Optional,
	}
	if f.Kind != FieldKeyRef {
		out.Type = f.Type
	}
	for _, sub := range f.Fields {
		out.Fields = append(out.Fields, skeletonField(sub))
	}
	return out
}

// Minimize erases every value of def that conv (together with the
// declaration skeleton) reproduces. Field and unique records whose values
// are all reproducible are dropped entirely; a record with any surviving
// value is kept with only the matching values cleared.
func Minimize(def Definition, conv Convention) Definition {
	out := Definition{Entity: def.Entity, Schema: def.Schema}

	if def.Name != conv.ConstructorName(def.Entity) {
		out.Name = def.Name
	}
	if def.DBName != conv.TableDBName(def.Entity) {
		out.DBName = def.DBName
	}
	if def.AutoKey != AutoKeySynthetic {
		out.AutoKey = def.AutoKey
	}
	if def.KeyDBName != conv.KeyDBName(def.Entity) {
		out.KeyDBName = def.KeyDBName
	}

	for _, f := range def.Fields {
		if min, keep := minimizeField(f, def.Entity, conv); keep {
			out.Fields = append(out.Fields, min)
		}
	}
	for _, u := range def.Uniques {
		min := UniqueDef{Name: u.Name, Key: u.Key}
		if u.DBName != conv.UniqueDBName(def.Entity, u.Name) {
			min.DBName = u.DBName
		}
		if min.DBName != "" || min.Key {
			out.Uniques = append(out.Uniques, min)
		}
	}
	return out
}

func minimizeField(f Field, entity string, conv Convention) (Field, bool) {
	min := Field{Name: f.Name, Kind: f.Kind}

	switch f.Kind {
	case FieldEmbedded:
		// Embedded composites bind through their sub-fields only.
		for _, sub := range f.Fields {
			if m, keep := minimizeField(sub, entity, conv); keep {
				min.Fields = append(min.Fields, m)
			}
		}
	default:
		if f.DBName != conv.FieldDBName(entity, f.Name) {
			min.DBName = f.DBName
		}
		min.Columns = append([]string(nil), f.Columns...)
	}

	if f.Kind == FieldKeyRef {
		// A key reference's type key is a database-side override; it is
		// never derivable and always survives.
		min.Type = f.Type
	}
	min.Default = f.Default
	min.OnDelete = f.OnDelete
	min.OnUpdate = f.OnUpdate

	keep := min.DBName != "" || min.Type != "" || len(min.Columns) > 0 ||
		len(min.Fields) > 0 || min.Default != "" || min.OnDelete != "" || min.OnUpdate != ""
	return min, keep
}

// ApplyDefaults recombines a declaration skeleton with a minimized mapping,
// filling every cleared value from conv. The result is the full definition
// Minimize started from.
func ApplyDefaults(decl Definition, min Definition, conv Convention) Definition {
	out := Definition{
		Entity: decl.Entity,
		Schema: min.Schema,
		Keys:   append([]Key(nil), decl.Keys...),
	}

	out.Name = min.Name
	if out.Name == "" {
		out.Name = conv.ConstructorName(decl.Entity)
	}
	out.DBName = min.DBName
	if out.DBName == "" {
		out.DBName = conv.TableDBName(decl.Entity)
	}
	out.AutoKey = min.AutoKey
	if out.AutoKey == "" {
		out.AutoKey = AutoKeySynthetic
	}
	if out.AutoKey == AutoKeyNone {
		out.KeyDBName = min.KeyDBName
		if out.KeyDBName == "" {
			out.KeyDBName = conv.KeyDBName(decl.Entity)
		}
	}

	minFields := make(map[string]*Field, len(min.Fields))
	for i := range min.Fields {
		minFields[min.Fields[i].Name] = &min.Fields[i]
	}
	for _, df := range decl.Fields {
		out.Fields = append(out.Fields, applyField(df, minFields[df.Name], decl.Entity, conv))
	}

	minUniques := make(map[string]*UniqueDef, len(min.Uniques))
	for i := range min.Uniques {
		minUniques[min.Uniques[i].Name] = &min.Uniques[i]
	}
	for _, du := range decl.Uniques {
		u := UniqueDef{
			Name:    du.Name,
			DBName:  conv.UniqueDBName(decl.Entity, du.Name),
			Columns: append([]string(nil), du.Columns...),
		}
		if mu := minUniques[du.Name]; mu != nil {
			if mu.DBName != "" {
				u.DBName = mu.DBName
			}
			u.Key = mu.Key
		}
		out.Uniques = append(out.Uniques, u)
	}
	return out
}

func applyField(decl Field, min *Field, entity string, conv Convention) Field {
	out := Field{
		Name:         decl.Name,
		Kind:         decl.Kind,
		KeyType:      decl.KeyType,
		EmbeddedType: decl.EmbeddedType,
		Type:         decl.Type,
		Optional:     decl.Optional,
	}

	if decl.Kind == FieldEmbedded {
		var minSubs map[string]*Field
		if min != nil {
			minSubs = make(map[string]*Field, len(min.Fields))
			for i := range min.Fields {
				minSubs[min.Fields[i].Name] = &min.Fields[i]
			}
		}
		for _, sub := range decl.Fields {
			out.Fields = append(out.Fields, applyField(sub, minSubs[sub.Name], entity, conv))
		}
	} else {
		out.DBName = conv.FieldDBName(entity, decl.Name)
	}

	if min != nil {
		if min.DBName != "" {
			out.DBName = min.DBName
		}
		if len(min.Columns) > 0 {
			out.Columns = append([]string(nil), min.Columns...)
			out.DBName = ""
		}
		if min.Type != "" && decl.Kind == FieldKeyRef {
			out.Type = min.Type
		}
		out.Default = min.Default
		out.OnDelete = min.OnDelete
		out.OnUpdate = min.OnUpdate
	}
	return out
}
