package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/service"
)

// EntitiesHandler serves the Go source generated from the mapping.
type EntitiesHandler struct {
	preview *service.Preview
	opts    gen.Options
}

// NewEntitiesHandler creates a new EntitiesHandler.
func NewEntitiesHandler(preview *service.Preview, opts gen.Options) *EntitiesHandler {
	return &EntitiesHandler{preview: preview, opts: opts}
}

// entitiesResponse is the JSON payload for the full generated file.
type entitiesResponse struct {
	File     string   `json:"file"`
	Entities []string `json:"entities"`
	Source   string   `json:"source"`
}

// entityResponse is the JSON payload for a single entity's source.
type entityResponse struct {
	Entity string `json:"entity"`
	Source string `json:"source"`
}

// List returns the complete generated entity file. format=go serves the
// raw source instead of the JSON envelope.
// GET /api/v1/entities
func (h *EntitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to generate entities: "+err.Error())
		return
	}

	file, err := gen.Build(result.Defs, h.opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render entities: "+err.Error())
		return
	}

	if queryString(r, "format") == "go" {
		writeSource(w, file.Content)
		return
	}

	entities := make([]string, len(result.Defs))
	for i, def := range result.Defs {
		entities[i] = def.Entity
	}
	writeJSON(w, http.StatusOK, entitiesResponse{
		File:     file.Name,
		Entities: entities,
		Source:   string(file.Content),
	})
}

// Get returns the source generated for one entity. Key types referenced
// from other entities are declared in the full file, not the excerpt.
// GET /api/v1/entities/{name}
func (h *EntitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to generate entities: "+err.Error())
		return
	}

	def, ok := result.Definition(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Entity not found: "+name, map[string]interface{}{
			"available": entityNames(result),
		})
		return
	}

	file, err := gen.Build([]mapping.Definition{def}, h.opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render entity: "+err.Error())
		return
	}

	if queryString(r, "format") == "go" {
		writeSource(w, file.Content)
		return
	}

	writeJSON(w, http.StatusOK, entityResponse{
		Entity: def.Entity,
		Source: string(file.Content),
	})
}

func entityNames(result *service.Result) []string {
	names := make([]string, len(result.Defs))
	for i, def := range result.Defs {
		names[i] = def.Entity
	}
	return names
}

func writeSource(w http.ResponseWriter, src []byte) {
	w.Header().Set("Content-Type", "text/x-go; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(src)
}
