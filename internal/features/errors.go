package features

import (
	"errors"
	"fmt"
)

// Sentinel errors for terminal call outcomes.
var (
	// ErrTimeout is returned when a remote call exceeds its wall-clock bound.
	// Timeouts are reported, never retried.
	ErrTimeout = errors.New("remote call timed out")

	// ErrNoResults is returned when the remote API answered successfully
	// but produced an empty result set.
	ErrNoResults = errors.New("no results")
)

// QuotaError is a remote 429/403 response. It is surfaced verbatim to the
// caller and never retried silently.
type QuotaError struct {
	Status  int
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded (HTTP %d): %s", e.Status, e.Message)
}

// RemoteError is any other non-success or malformed remote response,
// with the raw status and message attached.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (HTTP %d): %s", e.Status, e.Message)
}

// ValidationError is malformed local input, rejected before any remote call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// UserMessage converts any call error into a short user-readable string.
// Every dispatch code path ends in either a result or one of these.
func UserMessage(err error) string {
	var quota *QuotaError
	var remote *RemoteError
	var invalid *ValidationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &quota):
		return "API quota exceeded. Please wait a bit before trying again."
	case errors.As(err, &invalid):
		return "I couldn't process that: " + invalid.Reason
	case errors.Is(err, ErrTimeout):
		return "The request took too long and was dropped. Please try again."
	case errors.Is(err, ErrNoResults):
		return "No results found."
	case errors.As(err, &remote):
		return fmt.Sprintf("The service returned an error (HTTP %d). Please try again later.", remote.Status)
	default:
		return "Something went wrong processing your request."
	}
}
