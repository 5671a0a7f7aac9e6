package errors

// Error codes for categorizing errors. These codes map to HTTP status codes
// where applicable.
const (
	// CodeUnknown indicates an unknown error occurred.
	CodeUnknown = "UNKNOWN"

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeServiceUnavailable indicates a downstream service is unavailable.
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeUpstream indicates an upstream API (Whisper, Gemini) rejected a
	// request or failed.
	CodeUpstream = "UPSTREAM_ERROR"

	// CodePrecondition indicates a required precondition was not met, such
	// as a missing API key.
	CodePrecondition = "PRECONDITION_FAILED"

	// CodeCacheError indicates a cache operation failed.
	CodeCacheError = "CACHE_ERROR"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"
)

// IsRetryable returns true if an error with the given code should be retried.
func IsRetryable(code string) bool {
	switch code {
	case CodeTimeout, CodeServiceUnavailable, CodeCacheError:
		return true
	default:
		return false
	}
}
