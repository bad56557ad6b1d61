// Package errors provides structured error handling for the story engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Startup errors
	CodeLoadFailed      Code = "LOAD_FAILED"
	CodeInvalidDocument Code = "INVALID_DOCUMENT"

	// Degraded features
	CodeMountMissing Code = "MOUNT_MISSING"

	// Input errors
	CodeInvalidViewport Code = "INVALID_VIEWPORT"
	CodeInvalidEvent    Code = "INVALID_EVENT"

	// Lookup errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps the code to the status used by the HTTP transport.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidViewport, CodeInvalidEvent:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMountMissing, CodeLoadFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
