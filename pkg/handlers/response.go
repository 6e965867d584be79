// Package handlers implements the engine's HTTP front door.
package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error envelope: a machine-readable code plus a
// human-readable message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes the JSON error envelope with the given status.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(errorBody{Error: errorCode, Message: message})
}

// WriteJSON encodes data as the JSON response body. For 200 the status line
// is left to the first Write so handlers need no explicit WriteHeader on the
// happy path.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
