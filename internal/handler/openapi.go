package handler

import (
	"net/http"

	"github.com/remodeldb/remodel/internal/openapi"
	"github.com/remodeldb/remodel/internal/service"
)

// OpenAPIHandler serves the OpenAPI description of the preview API, with
// one component schema per generated entity.
type OpenAPIHandler struct {
	preview *service.Preview
	version string
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(preview *service.Preview, version string) *OpenAPIHandler {
	return &OpenAPIHandler{preview: preview, version: version}
}

// Serve returns the OpenAPI document for the current preview.
// GET /openapi.json
func (h *OpenAPIHandler) Serve(w http.ResponseWriter, r *http.Request) {
	result, err := resolve(r, h.preview)
	if err != nil {
		writeError(w, classifyPipelineError(err), "Failed to generate schema: "+err.Error())
		return
	}

	doc, err := openapi.Build(result, h.version)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build OpenAPI document: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
