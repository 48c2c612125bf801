package ops

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoResponse is returned when a respond call has neither an
	// override nor a stored suggestion to send.
	ErrNoResponse = errors.New("no suggested response available")

	// ErrAlreadyResponded is returned when escalation is blocked
	// because a response already went out.
	ErrAlreadyResponded = errors.New("email already responded")
)

// ValidationError reports rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError.
func Validation(message string) error {
	return &ValidationError{Message: message}
}
