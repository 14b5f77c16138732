package api

import (
	"encoding/json"
	"net/http"
)

// msgNotFound is returned for every unmatched route.
const msgNotFound = "请求的资源不存在"

// msgInternal is returned when a handler panics.
const msgInternal = "服务器内部错误"

// failure is the error body shared by every endpoint.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeFailure writes {success:false, error:message}.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Error: message})
}

// handleNotFound answers unmatched paths and unsupported methods alike.
func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusNotFound, msgNotFound)
}
