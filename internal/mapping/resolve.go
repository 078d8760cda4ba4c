package mapping

import (
	"fmt"

	"github.com/remodeldb/remodel/internal/naming"
	"github.com/remodeldb/remodel/internal/schema"
)

// resolver turns foreign-key column groups into field definitions. All
// columns of a reference are consumed together; a group never splits across
// fields. The resolver also records which (parent, unique) pairs were
// actually referenced, so key types are only materialized when used.
type resolver struct {
	strategy naming.Strategy
	model    schema.Model
	keyType  schema.LogicalType
	onDelete string
	onUpdate string

	// used collects referenced uniques per parent table, deduplicated by
	// column group.
	used map[schema.QualifiedName][]schema.Unique
}

func newResolver(strategy naming.Strategy, model schema.Model, keyType schema.LogicalType, onDelete, onUpdate string) *resolver {
	return &resolver{
		strategy: strategy,
		model:    model,
		keyType:  keyType,
		onDelete: onDelete,
		onUpdate: onUpdate,
		used:     make(map[schema.QualifiedName][]schema.Unique),
	}
}

// resolveReference produces the single field that represents ref on the
// child table, following the resolution policy in order: unmapped parents
// become scalars or embedded composites, synthetic primary keys become
// auto-key references, and other uniques become key references when
// child/parent nullability lines up.
func (r *resolver) resolveReference(child *schema.Table, ref *schema.Reference) (Field, error) {
	parent, mapped := r.model[ref.Target]
	if !mapped {
		return r.fallbackField(child, ref)
	}

	candidates := r.coveringUniques(parent, ref)
	if len(candidates) == 0 {
		// No unique covers the referenced columns; a typed key cannot be
		// constructed.
		return r.fallbackField(child, ref)
	}

	canonical, err := r.strategy.CanonicalUnique(parent, candidates)
	if err != nil {
		return Field{}, err
	}

	if canonical.Kind == schema.UniquePrimary {
		if auto, ok, err := parent.AutoIncrementColumn(); err != nil {
			return Field{}, err
		} else if ok && uniqueHasColumn(canonical, auto.Name) {
			return r.autoKeyField(child, ref, parent)
		}
	}

	match, wrappable, err := r.compareNullability(child, parent, ref)
	if err != nil {
		return Field{}, err
	}
	switch {
	case match:
		return r.phantomKeyField(child, ref, parent, canonical, false)
	case wrappable:
		return r.phantomKeyField(child, ref, parent, canonical, true)
	default:
		return r.fallbackField(child, ref)
	}
}

// coveringUniques returns the parent uniques whose column set matches the
// columns the reference targets.
func (r *resolver) coveringUniques(parent *schema.Table, ref *schema.Reference) []schema.Unique {
	target := schema.Unique{Fields: make([]schema.FieldRef, len(ref.Pairs))}
	for i, p := range ref.Pairs {
		target.Fields[i] = schema.FieldRef{Column: p.Parent}
	}
	var out []schema.Unique
	for _, u := range parent.Uniques {
		if u.SameGroup(target) {
			out = append(out, u)
		}
	}
	return out
}

// compareNullability checks the child column against its parent column for
// every pair, in reference order. match means the sequences agree exactly;
// wrappable means they differ but every child column is nullable and the
// reference collapses to a single column, the only case the optional wrapper
// covers.
func (r *resolver) compareNullability(child, parent *schema.Table, ref *schema.Reference) (match, wrappable bool, err error) {
	match = true
	allChildNullable := true
	for _, pair := range ref.Pairs {
		cc, err := child.Column(pair.Child)
		if err != nil {
			return false, false, err
		}
		pc, err := parent.Column(pair.Parent)
		if err != nil {
			return false, false, err
		}
		if cc.Nullable != pc.Nullable {
			match = false
		}
		if !cc.Nullable {
			allChildNullable = false
		}
	}
	wrappable = !match && allChildNullable && len(ref.Pairs) == 1
	return match, wrappable, nil
}

// autoKeyField resolves a reference onto the parent's auto key. The field
// records a type override when the child column's declared type differs from
// the dialect's default key type.
func (r *resolver) autoKeyField(child *schema.Table, ref *schema.Reference, parent *schema.Table) (Field, error) {
	f := Field{
		Kind:    FieldKeyRef,
		Name:    r.strategy.KeyFieldName(child, *ref),
		KeyType: r.strategy.KeyTypeName(parent, schema.Unique{Kind: schema.UniquePrimary}),
	}
	r.bindColumns(&f, ref)
	r.bindActions(&f, ref)

	if len(ref.Pairs) == 1 {
		cc, err := child.Column(ref.Pairs[0].Child)
		if err != nil {
			return Field{}, err
		}
		if cc.Type.Kind != r.keyType.Kind {
			f.Type = cc.Type.Name()
		}
		f.Optional = cc.Nullable
	}
	return f, nil
}

// phantomKeyField resolves a reference onto a generated key type for the
// parent's canonical unique and records the pair as used.
func (r *resolver) phantomKeyField(child *schema.Table, ref *schema.Reference, parent *schema.Table, canonical schema.Unique, optional bool) (Field, error) {
	r.markUsed(parent.Name, canonical)

	f := Field{
		Kind:     FieldKeyRef,
		Name:     r.strategy.KeyFieldName(child, *ref),
		KeyType:  r.strategy.KeyTypeName(parent, canonical),
		Optional: optional,
	}
	r.bindColumns(&f, ref)
	r.bindActions(&f, ref)
	return f, nil
}

// fallbackField represents a reference without a usable typed key: a plain
// scalar for single-column references, an embedded composite otherwise.
func (r *resolver) fallbackField(child *schema.Table, ref *schema.Reference) (Field, error) {
	if len(ref.Pairs) == 0 {
		return Field{}, fmt.Errorf("reference %s of %s has no columns: %w", ref.Name, child.Name, schema.ErrNotFound)
	}

	if len(ref.Pairs) == 1 {
		col, err := child.Column(ref.Pairs[0].Child)
		if err != nil {
			return Field{}, err
		}
		f := Field{
			Kind:     FieldColumn,
			Name:     r.strategy.FieldName(child, col.Name),
			DBName:   col.Name,
			Type:     col.Type.Name(),
			Optional: col.Nullable,
		}
		if col.Default != nil {
			f.Default = *col.Default
		}
		r.bindActions(&f, ref)
		return f, nil
	}

	f := Field{
		Kind:         FieldEmbedded,
		Name:         r.strategy.KeyFieldName(child, *ref),
		EmbeddedType: naming.UpperCamel(r.strategy.KeyFieldName(child, *ref)),
	}
	for _, pair := range ref.Pairs {
		col, err := child.Column(pair.Child)
		if err != nil {
			return Field{}, err
		}
		sub := Field{
			Kind:     FieldColumn,
			Name:     naming.LowerCamel(col.Name),
			DBName:   col.Name,
			Type:     col.Type.Name(),
			Optional: col.Nullable,
		}
		if col.Default != nil {
			sub.Default = *col.Default
		}
		f.Fields = append(f.Fields, sub)
	}
	r.bindActions(&f, ref)
	return f, nil
}

// bindColumns records the database columns a reference field consumes:
// dbName for a single column, the column list otherwise.
func (r *resolver) bindColumns(f *Field, ref *schema.Reference) {
	if len(ref.Pairs) == 1 {
		f.DBName = ref.Pairs[0].Child
		return
	}
	f.Columns = ref.ChildColumns()
}

// bindActions carries referential actions onto the field only when they
// differ from the ambient defaults.
func (r *resolver) bindActions(f *Field, ref *schema.Reference) {
	if ref.OnDelete != "" && ref.OnDelete != r.onDelete {
		f.OnDelete = ref.OnDelete
	}
	if ref.OnUpdate != "" && ref.OnUpdate != r.onUpdate {
		f.OnUpdate = ref.OnUpdate
	}
}

func (r *resolver) markUsed(parent schema.QualifiedName, u schema.Unique) {
	for _, seen := range r.used[parent] {
		if seen.SameGroup(u) && seen.Kind == u.Kind && seen.Name == u.Name {
			return
		}
	}
	r.used[parent] = append(r.used[parent], u)
}

func uniqueHasColumn(u schema.Unique, name string) bool {
	for _, f := range u.Fields {
		if f.Column == name {
			return true
		}
	}
	return false
}
