package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// Sentinel errors for session operations.
var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrStageBusy            = errors.New("stage already submitting")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrUnknownField         = errors.New("unknown activity field")
)

// ValidationError reports missing or invalid input caught before a request
// is issued. The backend is never contacted when one is returned.
type ValidationError struct {
	Stage  models.Stage
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Stage, e.Field, e.Reason)
}

// TransportError reports a network failure (Status 0) or a non-2xx response.
type TransportError struct {
	Stage   models.Stage
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: backend unreachable: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Stage, e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a 2xx response whose payload does not match
// any known shape for the stage.
type MalformedResponseError struct {
	Stage  models.Stage
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Stage, e.Reason)
}

// PersistenceError reports a failure reading or writing local state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// asTransportError converts a collaborator error into a TransportError,
// preserving the HTTP status when the error exposes one.
func asTransportError(stage models.Stage, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	out := &TransportError{Stage: stage, Message: err.Error(), Err: err}
	var sc statusCoder
	if errors.As(err, &sc) {
		out.Status = sc.StatusCode()
	}
	return out
}
