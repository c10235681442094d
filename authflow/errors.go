package authflow

import (
	"errors"
	"fmt"
)

// FieldError is a client-side, field-scoped validation failure. It blocks
// submission and is never sent to the server.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Reason }

// APIError is a non-2xx answer from the backend, carrying the user-facing
// message from the response body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Flow-level errors surfaced by the controller.
var (
	ErrBusy            = errors.New("another operation is in flight")
	ErrBadState        = errors.New("operation not valid in current state")
	ErrResendCooldown  = errors.New("please wait before requesting a new code")
	ErrChallengeClosed = errors.New("verification challenge is no longer active")
)

// retryable reports whether err is a transport failure rather than a
// server rejection. The form stays populated and the user may retry.
func retryable(err error) bool {
	var apiErr *APIError
	return err != nil && !errors.As(err, &apiErr)
}
