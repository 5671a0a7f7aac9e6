package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cruxrec/cruxrec/pkg/config"
	crerrors "github.com/cruxrec/cruxrec/pkg/errors"
	"github.com/cruxrec/cruxrec/pkg/proxyclient"
)

func testClient(t *testing.T, apiBase string) *Client {
	t.Helper()
	return New(config.SummarizerConfig{
		APIBase: apiBase,
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		Timeout: config.Duration(5 * time.Second),
	}, proxyclient.New("", true))
}

func TestSummarize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": "part one "}, {"text": "part two"}},
				},
			}},
		})
	}))
	defer srv.Close()

	summary, err := testClient(t, srv.URL).Summarize(context.Background(), "tl;dr", "the transcript")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "part one part two" {
		t.Errorf("summary = %q", summary)
	}

	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("request body = %+v", gotBody)
	}
	if text := gotBody.Contents[0].Parts[0].Text; !strings.HasPrefix(text, "tl;dr\n\n") {
		t.Errorf("prompt not prepended to transcript: %q", text)
	}
}

func TestSummarizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Summarize(context.Background(), "p", "t")
	var upstream *crerrors.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("got %T %v, want UpstreamError", err, err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", upstream.StatusCode)
	}
}

func TestSummarizeEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Summarize(context.Background(), "p", "t")
	var upstream *crerrors.UpstreamError
	if !errors.As(err, &upstream) {
		t.Errorf("got %v, want UpstreamError", err)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	_, err := testClient(t, "http://unused").Summarize(context.Background(), "p", "  ")
	if !errors.Is(err, crerrors.ErrNoTranscript) {
		t.Errorf("got %v, want ErrNoTranscript", err)
	}
}

func TestSummarizeMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_KEY", "")
	c := New(config.SummarizerConfig{
		APIBase: "http://unused",
		Model:   "gemini-2.0-flash",
		Timeout: config.Duration(time.Second),
	}, proxyclient.New("", true))

	_, err := c.Summarize(context.Background(), "p", "t")
	if !errors.Is(err, crerrors.ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}
}

func TestSummarizeAPIKeyFromEnv(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]string{{"text": "ok"}}},
			}},
		})
	}))
	defer srv.Close()

	t.Setenv("GEMINI_KEY", "env-key")
	c := New(config.SummarizerConfig{
		APIBase: srv.URL,
		Model:   "gemini-2.0-flash",
		Timeout: config.Duration(5 * time.Second),
	}, proxyclient.New("", true))

	if _, err := c.Summarize(context.Background(), "p", "t"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if gotKey != "env-key" {
		t.Errorf("api key = %q, want env fallback", gotKey)
	}
}
