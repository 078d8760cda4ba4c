// Package service orchestrates the reverse-mapping flow shared by the CLI,
// the HTTP server, and the MCP server: list tables, filter them through the
// selector, pull in everything reachable through foreign keys, and generate
// entity definitions.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/naming"
	"github.com/remodeldb/remodel/internal/schema"
	"github.com/remodeldb/remodel/internal/selector"
)

// Pipeline runs the mapping flow against one live connection.
type Pipeline struct {
	Introspector introspect.Introspector
	Selector     *selector.Selector
	Strategy     naming.Strategy
	Logger       *slog.Logger
}

// Result is one pipeline run over a live schema.
type Result struct {
	Dialect string
	Schema  string
	Model   schema.Model
	// Defs are the fully resolved declarations, Minimized the same
	// definitions with derivable values stripped for serialization.
	// Both slices share index order.
	Defs      []mapping.Definition
	Minimized []mapping.Definition
	TakenAt   time.Time
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run executes the pipeline once. Selected tables come from the default
// schema listing plus one listing per schema named literally in the
// selector. The foreign key closure then pulls in any referenced table
// that is not explicitly excluded, so generated key references stay
// resolvable even when their target was never selected.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	current, err := p.Introspector.CurrentSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current schema: %w", err)
	}

	names, err := p.listCandidates(ctx, current)
	if err != nil {
		return nil, err
	}
	p.log().Debug("tables listed", "schema", current, "count", len(names))

	fetch := introspect.Fetch(ctx, p.Introspector)
	seed, err := schema.SeedFromNames(names, p.Selector.Match, fetch)
	if err != nil {
		return nil, err
	}

	model, err := schema.Closure(seed, p.notExcluded, fetch)
	if err != nil {
		return nil, err
	}

	gen := mapping.Generator{
		Strategy:       p.Strategy,
		DefaultKeyType: p.Introspector.DefaultKeyType(),
	}
	defs, err := gen.Generate(model)
	if err != nil {
		return nil, err
	}

	minimized := make([]mapping.Definition, len(defs))
	for i, def := range defs {
		minimized[i] = mapping.Minimize(def, mapping.DefaultConvention{})
	}

	p.log().Info("mapping generated",
		"dialect", p.Introspector.Dialect(),
		"schema", current,
		"tables", len(model),
		"entities", len(defs),
		"duration_ms", float64(time.Since(start).Microseconds())/1000)

	return &Result{
		Dialect:   p.Introspector.Dialect(),
		Schema:    current,
		Model:     model,
		Defs:      defs,
		Minimized: minimized,
		TakenAt:   start,
	}, nil
}

// listCandidates gathers table names from the default schema and from
// every schema the selector names literally. Listing the current schema
// under its own name yields the same unqualified spellings as the
// default listing, so duplicates collapse in the seen set.
func (p *Pipeline) listCandidates(ctx context.Context, current string) ([]schema.QualifiedName, error) {
	schemas := []string{""}
	for _, s := range p.Selector.LiteralSchemas() {
		if strings.EqualFold(s, current) {
			continue
		}
		schemas = append(schemas, s)
	}

	var names []schema.QualifiedName
	seen := make(map[schema.QualifiedName]bool)
	for _, sc := range schemas {
		listed, err := p.Introspector.ListTables(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("list tables in %q: %w", sc, err)
		}
		for _, n := range listed {
			qn := schema.ParseQualifiedName(n)
			if seen[qn] {
				continue
			}
			seen[qn] = true
			names = append(names, qn)
		}
	}
	return names, nil
}

func (p *Pipeline) notExcluded(qn schema.QualifiedName) bool {
	return !p.Selector.Excludes(qn)
}

// Table looks up an introspected table by its possibly qualified name.
func (r *Result) Table(name string) (*schema.Table, bool) {
	qn := schema.ParseQualifiedName(name)
	t, ok := r.Model[qn]
	return t, ok
}

// Definition looks up an entity definition by type name. Lookup is exact
// first, then case-insensitive.
func (r *Result) Definition(name string) (mapping.Definition, bool) {
	for _, def := range r.Defs {
		if def.Entity == name {
			return def, true
		}
	}
	for _, def := range r.Defs {
		if strings.EqualFold(def.Entity, name) {
			return def, true
		}
	}
	return mapping.Definition{}, false
}
