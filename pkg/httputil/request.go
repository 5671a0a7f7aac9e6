package httputil

import (
	"encoding/json"
	"net/http"
)

// DecodeJSON decodes the request body as JSON into the provided value.
// Returns an error if decoding fails.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// DecodeJSONStrict decodes the request body as JSON with strict validation.
// It disallows unknown fields and returns an error if any are present.
func DecodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// QueryParam returns the value of a query parameter, or defaultValue if not present.
func QueryParam(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}
