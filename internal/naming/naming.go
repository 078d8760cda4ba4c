package naming

import (
	"sort"

	"github.com/remodeldb/remodel/internal/schema"
)

// Strategy derives every name the mapping and declaration generators need.
// Implementations must be deterministic: the same inputs always produce the
// same names, and CanonicalUnique must not depend on the order candidates are
// presented in. Name collisions between derived names are not resolved here;
// callers that need collision-free output supply a customized strategy.
type Strategy interface {
	// EntityName names the generated record type for a table.
	EntityName(t *schema.Table) string
	// ConstructorName names the table's constructor.
	ConstructorName(t *schema.Table) string
	// FieldName names the field generated for one column.
	FieldName(t *schema.Table, column string) string
	// KeyFieldName names the field generated for a foreign-key group.
	KeyFieldName(t *schema.Table, ref schema.Reference) string
	// CanonicalUnique picks the stable representative of a candidate set.
	CanonicalUnique(t *schema.Table, candidates []schema.Unique) (schema.Unique, error)
	// KeyTypeName names the key type generated for a (table, unique) pair.
	KeyTypeName(t *schema.Table, u schema.Unique) string
	// UniqueName names a unique-key definition; ordinal is the 1-based
	// position among the table's emitted uniques, used when the constraint
	// is unnamed.
	UniqueName(t *schema.Table, ordinal int, u schema.Unique) string
}

// ChooseCanonicalUnique is the shared tie-break used by the bundled
// strategies: sort candidates by declared name, prefer a primary key, then a
// declared constraint over an index, then the first of the sorted list. The
// result depends only on the candidate set, never on its order.
func ChooseCanonicalUnique(t *schema.Table, candidates []schema.Unique) (schema.Unique, error) {
	if len(candidates) == 0 {
		return schema.Unique{}, &schema.EmptyCandidatesError{Table: t.Name}
	}

	sorted := make([]schema.Unique, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Kind < sorted[j].Kind
	})

	for _, u := range sorted {
		if u.Kind == schema.UniquePrimary {
			return u, nil
		}
	}
	for _, u := range sorted {
		if u.Kind == schema.UniqueConstraint {
			return u, nil
		}
	}
	return sorted[0], nil
}
