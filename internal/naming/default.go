package naming

import (
	"strconv"

	"github.com/jinzhu/inflection"

	"github.com/remodeldb/remodel/internal/schema"
)

// Default is the reference naming convention: singular UpperCamel entity
// names and field names prefixed with the singular table name, so the
// customer_id column of orders becomes orderCustomerId.
type Default struct{}

func (Default) EntityName(t *schema.Table) string {
	return UpperCamel(inflection.Singular(t.Name.Name))
}

func (d Default) ConstructorName(t *schema.Table) string {
	return d.EntityName(t)
}

func (Default) FieldName(t *schema.Table, column string) string {
	return LowerCamel(inflection.Singular(t.Name.Name)) + UpperCamel(column)
}

func (d Default) KeyFieldName(t *schema.Table, ref schema.Reference) string {
	if len(ref.Pairs) == 0 {
		return LowerCamel(inflection.Singular(t.Name.Name)) + UpperCamel(ref.Name)
	}
	return d.FieldName(t, ref.Pairs[0].Child)
}

func (Default) CanonicalUnique(t *schema.Table, candidates []schema.Unique) (schema.Unique, error) {
	return ChooseCanonicalUnique(t, candidates)
}

func (d Default) KeyTypeName(t *schema.Table, u schema.Unique) string {
	entity := d.EntityName(t)
	if u.Kind == schema.UniquePrimary {
		return entity + "Key"
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

func (d Default) UniqueName(t *schema.Table, ordinal int, u schema.Unique) string {
	if u.Name != "" {
		return UpperCamel(u.Name)
	}
	return "Unique" + d.EntityName(t) + strconv.Itoa(ordinal)
}
