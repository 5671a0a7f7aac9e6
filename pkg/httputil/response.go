package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/cruxrec/cruxrec/pkg/errors"
)

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json and encodes the value as JSON.
// Any encoding errors are silently ignored (best-effort).
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized JSON error response.
// The response format is: {"error": "message"}
func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, map[string]any{"error": msg})
}

// WriteErr maps an error to its HTTP status and writes it as a JSON error
// response.
func WriteErr(w http.ResponseWriter, err error) {
	WriteError(w, errors.StatusCode(err), err.Error())
}

// WriteSuccess writes a standardized JSON success response.
// The response format is: {"status": "ok"}
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
