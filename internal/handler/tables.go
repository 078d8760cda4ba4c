package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remodeldb/remodel/internal/service"
)

// TablesHandler serves the introspected side of the preview: the tables the
// selector admitted plus everything the foreign key closure pulled in.
type TablesHandler struct {
	preview *service.Preview
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(preview *service.Preview) *TablesHandler {
	return &TablesHandler{preview: preview}
}

// tableSummary is one row of the table listing.
type tableSummary struct {
	Name       string `json:"name"`
	Columns    int    `json:"columns"`
	Uniques    int    `json:"uniques"`
	References int    `json:"references"`
}

// tableListResponse is the payload for the table listing endpoint.
type tableListResponse struct {
	Dialect string         `json:"dialect"`
	Schema  string         `json:"schema,omitempty"`
	TakenAt time.Time      `json:"taken_at"`
	Count   int            `json:"count"`
	Tables  []tableSummary `json:"tables"`
}

// List returns a summary of every table in the current preview.
// GET /api/v1/tables
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to introspect schema: "+err.Error())
		return
	}

	names := result.Model.Names()
	tables := make([]tableSummary, len(names))
	for i, name := range names {
		t := result.Model[name]
		tables[i] = tableSummary{
			Name:       name.String(),
			Columns:    len(t.Columns),
			Uniques:    len(t.Uniques),
			References: len(t.Refs),
		}
	}

	writeJSON(w, http.StatusOK, tableListResponse{
		Dialect: result.Dialect,
		Schema:  result.Schema,
		TakenAt: result.TakenAt,
		Count:   len(tables),
		Tables:  tables,
	})
}

// Get returns one introspected table with its columns, unique column
// groups, and foreign keys. Tables outside the default schema are
// addressed as "schema.name".
// GET /api/v1/tables/{name}
func (h *TablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to introspect schema: "+err.Error())
		return
	}

	table, ok := result.Table(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Table not found: "+name, map[string]interface{}{
			"available": tableNames(result),
		})
		return
	}

	writeJSON(w, http.StatusOK, table)
}

func tableNames(result *service.Result) []string {
	names := result.Model.Names()
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name.String()
	}
	return out
}
