package schema

import "fmt"

// IncludeFunc decides whether a referenced table belongs in the closure.
// Tables rejected here stay unmapped parents: children may still reference
// them, but no mapping is generated for them.
type IncludeFunc func(QualifiedName) bool

// FetchFunc supplies a table on demand during closure computation. Returning
// (nil, nil) means the table does not exist.
type FetchFunc func(QualifiedName) (*Table, error)

// Closure expands seed with every table transitively reachable through
// foreign keys, fetching newly discovered tables via fetch. A nil include
// accepts everything.
//
// The walk keeps two sets: checked tables, whose references have all been
// expanded, and a frontier of tables fetched in the previous round. Each
// round collects reference targets that pass include and are in neither set,
// fetches them into the next frontier, and retires the current frontier into
// checked. The result is independent of traversal order; only the table
// universe and the include predicate determine it.
//
// Any fetch miss aborts the whole computation with a DanglingReferenceError.
// No partial closure is returned.
func Closure(seed Model, include IncludeFunc, fetch FetchFunc) (Model, error) {
	if include == nil {
		include = func(QualifiedName) bool { return true }
	}

	checked := make(Model, len(seed))
	frontier := make(Model, len(seed))
	for name, t := range seed {
		frontier[name] = t
	}

	for len(frontier) > 0 {
		next := make(Model)
		for _, name := range frontier.Names() {
			for _, ref := range frontier[name].Refs {
				target := ref.Target
				if !include(target) {
					continue
				}
				if _, ok := checked[target]; ok {
					continue
				}
				if _, ok := frontier[target]; ok {
					continue
				}
				if _, ok := next[target]; ok {
					continue
				}
				t, err := fetch(target)
				if err != nil {
					return nil, fmt.Errorf("fetch %s: %w", target, err)
				}
				if t == nil {
					return nil, &DanglingReferenceError{From: name, Target: target}
				}
				next[target] = t
			}
		}
		for name, t := range frontier {
			checked[name] = t
		}
		frontier = next
	}

	return checked, nil
}

// SeedFromNames builds a closure seed by fetching every listed table that
// include accepts. A fetch miss for a listed name is a DanglingReferenceError,
// since the caller asserted the table exists.
func SeedFromNames(names []QualifiedName, include IncludeFunc, fetch FetchFunc) (Model, error) {
	if include == nil {
		include = func(QualifiedName) bool { return true }
	}
	seed := make(Model, len(names))
	for _, name := range names {
		if !include(name) {
			continue
		}
		if _, ok := seed[name]; ok {
			continue
		}
		t, err := fetch(name)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		if t == nil {
			return nil, &DanglingReferenceError{From: name, Target: name}
		}
		seed[name] = t
	}
	return seed, nil
}
