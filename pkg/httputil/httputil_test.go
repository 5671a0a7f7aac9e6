package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cruxrec/cruxrec/pkg/errors"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"name": "job"})

	if rec.Code != http.StatusCreated {
		t.Errorf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "job" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteErr(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErr(rec, errors.ErrVideoTooLong)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("code = %d, want 422", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("error message missing: %v", body)
	}
}

func TestDecodeJSONStrict(t *testing.T) {
	type payload struct {
		URL string `json:"url"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"u"}`))
	var p payload
	if err := DecodeJSONStrict(req, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.URL != "u" {
		t.Errorf("url = %q", p.URL)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"u","extra":1}`))
	if err := DecodeJSONStrict(req, &p); err == nil {
		t.Errorf("unknown field should be rejected")
	}

	// The lenient variant accepts unknown fields.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"u","extra":1}`))
	if err := DecodeJSON(req, &p); err != nil {
		t.Errorf("lenient decode: %v", err)
	}
}

func TestQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	if got := QueryParam(req, "lang", "ru"); got != "en" {
		t.Errorf("got %q", got)
	}
	if got := QueryParam(req, "missing", "ru"); got != "ru" {
		t.Errorf("got %q, want default", got)
	}
}
