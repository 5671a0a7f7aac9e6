package errors

import (
	"errors"
	"net/http"
)

// StatusCode returns the HTTP status code for an error.
// It maps error codes to appropriate HTTP status codes.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return codeToHTTPStatus(customErr.Code())
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoSubtitles), errors.Is(err, ErrNoTranscript):
		return http.StatusNotFound
	case errors.Is(err, ErrVideoTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMissingAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeToHTTPStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodePrecondition:
		return http.StatusPreconditionFailed
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeConfigError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
