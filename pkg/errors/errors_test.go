package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found sentinel", ErrNotFound, http.StatusNotFound},
		{"no subtitles", ErrNoSubtitles, http.StatusNotFound},
		{"no transcript", ErrNoTranscript, http.StatusNotFound},
		{"too long", ErrVideoTooLong, http.StatusUnprocessableEntity},
		{"missing api key", ErrMissingAPIKey, http.StatusPreconditionFailed},
		{"timeout sentinel", ErrTimeout, http.StatusGatewayTimeout},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("context: %w", ErrVideoTooLong), http.StatusUnprocessableEntity},
		{"validation", NewValidationError("url", "missing", nil), http.StatusBadRequest},
		{"not found typed", NewNotFoundError("job", "abc"), http.StatusNotFound},
		{"upstream", NewUpstreamError("gemini", "boom", 500, nil), http.StatusBadGateway},
		{"timeout typed", NewTimeoutError("download", "10m"), http.StatusGatewayTimeout},
		{"precondition", NewPreconditionError("yt-dlp", ""), http.StatusPreconditionFailed},
		{"internal typed", NewInternalError("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	orig := NewUpstreamError("whisper", "bad gateway", 502, nil)
	wrapped := Wrap(orig, "transcription failed")

	var custom Error
	if !stderrors.As(wrapped, &custom) {
		t.Fatalf("wrapped error lost the custom type")
	}
	if custom.Code() != CodeUpstream {
		t.Errorf("code = %q, want %q", custom.Code(), CodeUpstream)
	}
	if !stderrors.Is(wrapped, orig) {
		t.Errorf("wrapped error should unwrap to the original")
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(stderrors.New("disk full"), "cache write failed")

	var internal *InternalError
	if !stderrors.As(wrapped, &internal) {
		t.Fatalf("got %T, want InternalError", wrapped)
	}
	if StatusCode(wrapped) != http.StatusInternalServerError {
		t.Errorf("status = %d", StatusCode(wrapped))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "whatever") != nil {
		t.Errorf("wrapping nil should return nil")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation with field", NewValidationError("url", "missing 'url'", nil), "validation error: url: missing 'url'"},
		{"not found with id", NewNotFoundError("job", "42"), "job with ID '42' not found"},
		{"not found without id", NewNotFoundError("job", ""), "job not found"},
		{"upstream with cause", NewUpstreamError("gemini", "request failed", 0, stderrors.New("eof")), "request failed: eof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
