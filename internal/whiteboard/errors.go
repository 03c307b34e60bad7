package whiteboard

import (
	"errors"
	"fmt"
)

// Conflict codes returned by resolve operations.
const (
	ConflictNoExistingRoom = "no_existing_room"
)

// NetworkError indicates a transport failure or a request that exceeded the
// client's time bound. Always safe for the caller to retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("whiteboard: request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the whiteboard service. Body holds the
// best-effort decoded error payload; the service does not always return JSON
// on errors, so Body may be empty.
type APIError struct {
	Status int
	Body   map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whiteboard: api error (status %d)", e.Status)
}

// ConflictError is a business-rule refusal, not a transport problem.
type ConflictError struct {
	Code string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("whiteboard: conflict: %s", e.Code)
}

// isStatus reports whether err is an APIError with the given HTTP status.
func isStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}
