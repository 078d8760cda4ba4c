// Package selector filters qualified table names with include and
// exclude patterns.
//
// A selector is a comma-separated list of terms. Each term is a glob
// over the table name ("orders", "audit_*", "temp_?"), optionally
// qualified with a schema ("billing.plans", "billing.*"). A leading !
// turns the term into an exclusion. Globs understand * (any run) and
// ? (one character) and match case-insensitively.
//
// A name matches when no exclude term matches it and at least one
// include term does; a selector with no include terms includes
// everything. Unqualified terms match only tables in the connection's
// default schema, which list with an empty schema part.
package selector

import (
	"fmt"
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// Selector is a parsed table filter.
type Selector struct {
	expr     string
	includes []term
	excludes []term
}

type term struct {
	schema    string
	name      string
	qualified bool
}

// Parse compiles a selector expression. The empty expression selects
// everything.
func Parse(expr string) (*Selector, error) {
	s := &Selector{expr: expr}

	for _, raw := range strings.Split(expr, ",") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		negated := false
		if strings.HasPrefix(text, "!") {
			negated = true
			text = strings.TrimSpace(text[1:])
			if text == "" {
				return nil, fmt.Errorf("selector term %q: nothing to exclude", strings.TrimSpace(raw))
			}
		}

		var t term
		if dot := strings.Index(text, "."); dot >= 0 {
			t = term{schema: text[:dot], name: text[dot+1:], qualified: true}
			if t.schema == "" || t.name == "" {
				return nil, fmt.Errorf("selector term %q: empty schema or table pattern", strings.TrimSpace(raw))
			}
		} else {
			t = term{name: text}
		}

		if negated {
			s.excludes = append(s.excludes, t)
		} else {
			s.includes = append(s.includes, t)
		}
	}
	return s, nil
}

// Match reports whether the selector admits the given table name.
func (s *Selector) Match(qn schema.QualifiedName) bool {
	for _, t := range s.excludes {
		if t.matches(qn) {
			return false
		}
	}
	if len(s.includes) == 0 {
		return true
	}
	for _, t := range s.includes {
		if t.matches(qn) {
			return true
		}
	}
	return false
}

// Excludes reports whether an exclude term matches the given name.
// Unlike Match it ignores the include terms, so callers can pull in
// tables reached through foreign keys unless explicitly excluded.
func (s *Selector) Excludes(qn schema.QualifiedName) bool {
	for _, t := range s.excludes {
		if t.matches(qn) {
			return true
		}
	}
	return false
}

// LiteralSchemas returns the schema names spelled out verbatim in
// qualified include terms, deduplicated in first-seen order. Terms
// with wildcards in the schema part are skipped; they can only filter
// names that were listed some other way.
func (s *Selector) LiteralSchemas() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range s.includes {
		if !t.qualified || strings.ContainsAny(t.schema, "*?") {
			continue
		}
		key := strings.ToLower(t.schema)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t.schema)
	}
	return out
}

// String returns the original selector expression.
func (s *Selector) String() string { return s.expr }

func (t term) matches(qn schema.QualifiedName) bool {
	if t.qualified != (qn.Schema != "") {
		return false
	}
	if t.qualified && !matchGlob(t.schema, qn.Schema) {
		return false
	}
	return matchGlob(t.name, qn.Name)
}

// matchGlob matches name against pattern with * and ? wildcards,
// case-insensitively. Iterative with star backtracking.
func matchGlob(pattern, name string) bool {
	p := []rune(strings.ToLower(pattern))
	n := []rune(strings.ToLower(name))

	pi, ni := 0, 0
	star, starNi := -1, 0
	for ni < len(n) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == n[ni]):
			pi++
			ni++
		case pi < len(p) && p[pi] == '*':
			star, starNi = pi, ni
			pi++
		case star >= 0:
			starNi++
			pi, ni = star+1, starNi
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
