package mapping

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/remodeldb/remodel/internal/naming"
)

// Convention derives the database names a declared entity implies: the
// reverse direction of a naming strategy. Minimization subtracts exactly the
// values a Convention reproduces, and ApplyDefaults uses the same Convention
// to put them back.
type Convention interface {
	// ConstructorName returns the default constructor name for an entity.
	ConstructorName(entity string) string
	// TableDBName returns the table name the entity name implies.
	TableDBName(entity string) string
	// KeyDBName returns the default auto-key column name.
	KeyDBName(entity string) string
	// FieldDBName returns the column name a field name implies.
	FieldDBName(entity, field string) string
	// UniqueDBName returns the constraint name a unique name implies.
	UniqueDBName(entity, unique string) string
}

// DefaultConvention mirrors naming.Default: plural snake_case tables,
// entity-prefixed lowerCamel fields, id auto keys.
type DefaultConvention struct{}

func (DefaultConvention) ConstructorName(entity string) string {
	return entity
}

func (DefaultConvention) TableDBName(entity string) string {
	return inflection.Plural(naming.SnakeCase(entity))
}

func (DefaultConvention) KeyDBName(string) string {
	return "id"
}

func (DefaultConvention) FieldDBName(entity, field string) string {
	prefix := naming.LowerCamel(entity)
	if rest := strings.TrimPrefix(field, prefix); rest != field && rest != "" {
		return naming.SnakeCase(rest)
	}
	return naming.SnakeCase(field)
}

func (DefaultConvention) UniqueDBName(_, unique string) string {
	// Synthetic Unique<Entity><n> names stand in for constraints that were
	// never named in the catalog; they imply no dbName at all.
	if strings.HasPrefix(unique, "Unique") && len(unique) > 6 {
		if c := unique[len(unique)-1]; c >= '0' && c <= '9' {
			return ""
		}
	}
	return naming.SnakeCase(unique)
}
