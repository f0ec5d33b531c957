package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError matches the handler envelope so clients see one error shape.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code"`
	}{Error: msg, ErrorCode: status})
}
