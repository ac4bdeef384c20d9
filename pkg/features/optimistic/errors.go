package optimistic

import (
	"errors"
	"fmt"
)

// ErrInvalidUpdate is returned by Start and Execute when a required
// capability of the Update is missing. Nothing is applied or registered.
var ErrInvalidUpdate = errors.New("optimistic: invalid update")

// FailureMessagePrefix prefixes every failure notification.
const FailureMessagePrefix = "Action failed: "

// PanicError is the failure reported when a confirmation panics.
// The Action is rolled back exactly as for a returned error.
type PanicError struct {
	ActionID string
	Value    any
	Stack    []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("optimistic: confirmation %s panicked: %v", e.ActionID, e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FailureMessage returns the user-facing message for a failed confirmation.
func FailureMessage(err error) string {
	if err == nil {
		return FailureMessagePrefix + "unknown error"
	}
	return FailureMessagePrefix + err.Error()
}
