// Package remote holds what the remote service adapters share.
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingAPIKey is returned when a provider key is not configured.
var ErrMissingAPIKey = errors.New("API key not configured")

// Error is a failed remote call. Message is the service's diagnostic detail,
// empty when the service gave none.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}

	if e.Err != nil {
		if msg == "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}

	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
	}

	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the service-supplied message.
func (e *Error) Detail() string {
	return e.Message
}
