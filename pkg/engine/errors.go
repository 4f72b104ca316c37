package engine

import (
	"encoding/json"
	"net/http"
)

// errorBody is the shape of every error response the engine emits.
type errorBody struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

// writeError emits a JSON error payload. All engine failures go through
// here so clients can always read a "detail" field.
func writeError(w http.ResponseWriter, status int, detail string, causes ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail, Errors: causes})
}
