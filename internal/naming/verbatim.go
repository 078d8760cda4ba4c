package naming

import (
	"strconv"
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// Verbatim keeps database identifiers as close to their catalog spelling as
// an exported identifier allows: orders stays Orders, customer_id stays
// CustomerId without a table prefix. Useful when the schema already follows
// a naming discipline worth preserving.
type Verbatim struct{}

func (Verbatim) EntityName(t *schema.Table) string {
	return UpperCamel(t.Name.Name)
}

func (v Verbatim) ConstructorName(t *schema.Table) string {
	return v.EntityName(t)
}

func (Verbatim) FieldName(t *schema.Table, column string) string {
	return LowerCamel(column)
}

func (v Verbatim) KeyFieldName(t *schema.Table, ref schema.Reference) string {
	if len(ref.Pairs) == 0 {
		return LowerCamel(ref.Name)
	}
	return v.FieldName(t, ref.Pairs[0].Child)
}

func (Verbatim) CanonicalUnique(t *schema.Table, candidates []schema.Unique) (schema.Unique, error) {
	return ChooseCanonicalUnique(t, candidates)
}

func (v Verbatim) KeyTypeName(t *schema.Table, u schema.Unique) string {
	entity := v.EntityName(t)
	if u.Kind == schema.UniquePrimary {
		return entity + "Key"
	}
	if u.Name != "" {
		return entity + UpperCamel(strings.TrimPrefix(u.Name, t.Name.Name+"_")) + "Key"
	}
	name := entity
	for i, f := range u.Fields {
		if f.Column != "" {
			name += UpperCamel(f.Column)
		} else {
			name += "Expr" + strconv.Itoa(i+1)
		}
	}
	return name + "Key"
}

func (v Verbatim) UniqueName(t *schema.Table, ordinal int, u schema.Unique) string {
	if u.Name != "" {
		return UpperCamel(u.Name)
	}
	return v.EntityName(t) + "Unique" + strconv.Itoa(ordinal)
}
