package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected marks a well-formed response carrying ok=false.
	ErrRejected = errors.New("backend rejected request")

	// ErrMalformed marks a response that is not JSON, lacks the ok flag or
	// lacks the payload its action promises.
	ErrMalformed = errors.New("malformed backend response")
)

// Error describes a failed RPC call. Message holds the server-provided text,
// which may be empty. Transport is set when the endpoint could not be
// reached or the HTTP exchange itself failed.
type Error struct {
	Action    string
	Message   string
	Transport bool
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Action, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Action, e.Err)
	default:
		return e.Action + ": request failed"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a connectivity failure.
func IsTransport(err error) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Transport
}

// ServerMessage extracts the server-provided message from err, if any.
func ServerMessage(err error) string {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Message
	}
	return ""
}
