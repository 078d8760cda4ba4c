// Package handler implements the HTTP API for browsing an introspected
// schema and the mapping generated from it. All endpoints are read-only;
// they serve the latest pipeline result and re-run it on demand.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/remodeldb/remodel/internal/schema"
	"github.com/remodeldb/remodel/internal/service"
)

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryBool extracts a boolean query parameter. Returns false if the parameter
// is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// resolve returns the preview result, re-running the pipeline when the
// request carries refresh=1.
func resolve(r *http.Request, preview *service.Preview) (*service.Result, error) {
	if queryBool(r, "refresh") {
		return preview.Refresh(r.Context())
	}
	return preview.Current(r.Context())
}

// classifyPipelineError maps pipeline failures to HTTP status codes. Schema
// shapes the engine refuses to map are client-fixable and report as 422;
// anything else is a server-side failure.
func classifyPipelineError(err error) int {
	var dangling *schema.DanglingReferenceError
	var ambiguous *schema.AmbiguousColumnError
	var multiAuto *schema.MultipleAutoKeysError
	var empty *schema.EmptyCandidatesError
	switch {
	case errors.As(err, &dangling),
		errors.As(err, &ambiguous),
		errors.As(err, &multiAuto),
		errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
