package handler

import (
	"net/http"
	"time"

	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/service"
)

// MappingHandler serves the generated mapping document.
type MappingHandler struct {
	preview *service.Preview
}

// NewMappingHandler creates a new MappingHandler.
func NewMappingHandler(preview *service.Preview) *MappingHandler {
	return &MappingHandler{preview: preview}
}

// mappingResponse is the JSON payload for the mapping endpoint.
type mappingResponse struct {
	Dialect  string               `json:"dialect"`
	Schema   string               `json:"schema,omitempty"`
	TakenAt  time.Time            `json:"taken_at"`
	Count    int                  `json:"count"`
	Entities []mapping.Definition `json:"entities"`
}

// Get returns the mapping generated from the current preview. The default
// form is minimized for serialization; full=1 returns the resolved
// declarations instead. format=yaml serves the canonical document format.
// GET /api/v1/mapping
func (h *MappingHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to generate mapping: "+err.Error())
		return
	}

	defs := result.Minimized
	if queryBool(r, "full") {
		defs = result.Defs
	}

	if queryString(r, "format") == "yaml" {
		doc, err := mapping.MarshalDocument(defs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to serialize mapping: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(doc)
		return
	}

	writeJSON(w, http.StatusOK, mappingResponse{
		Dialect:  result.Dialect,
		Schema:   result.Schema,
		TakenAt:  result.TakenAt,
		Count:    len(defs),
		Entities: defs,
	})
}
