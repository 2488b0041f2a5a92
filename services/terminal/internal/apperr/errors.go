// Package apperr defines the error classes shared by the terminal workflows. Validation and
// precondition errors are raised locally and never reach the authority; network and remote
// errors come back from the REST client or the push channel.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindInactiveSubscription Kind = "inactive_subscription"
	KindPreconditionFailed   Kind = "precondition_failed"
	KindNetwork              Kind = "network"
	KindRemote               Kind = "remote"
)

// Sentinels usable with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrInactiveSubscription = errors.New("inactive subscription")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrNetwork              = errors.New("network error")
	ErrRemote               = errors.New("remote error")
)

var sentinels = map[Kind]error{
	KindValidation:           ErrValidation,
	KindNotFound:             ErrNotFound,
	KindInactiveSubscription: ErrInactiveSubscription,
	KindPreconditionFailed:   ErrPreconditionFailed,
	KindNetwork:              ErrNetwork,
	KindRemote:               ErrRemote,
}

// Error carries the kind, the operation that failed and, for remote failures, the HTTP status
// and the authority's structured field errors.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int
	Fields  map[string]any
	Err     error
}

// Error formats as "op: message".
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = sentinels[e.Kind].Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind. Any HTTP 404 also matches ErrNotFound.
func (e *Error) Is(target error) bool {
	if target == sentinels[e.Kind] {
		return true
	}
	return e.Status == 404 && target == ErrNotFound
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// Validation reports bad local input. It never reaches the authority.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NotFound reports a missing remote entity and keeps the cause in Err.
func NotFound(op, message string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message, Err: err}
}

// InactiveSubscription reports a subscription that exists but is not active.
func InactiveSubscription(op, subscriptionID string) *Error {
	return &Error{Kind: KindInactiveSubscription, Op: op, Message: fmt.Sprintf("subscription %s is not active", subscriptionID)}
}

// Precondition reports a workflow action attempted from the wrong state.
func Precondition(op, message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Op: op, Message: message}
}

// Network reports a transport failure or a send on a closed channel.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "network error occurred", Err: err}
}

// HTTPStatus is a non-2xx response that carried no structured message.
func HTTPStatus(op string, status int) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: fmt.Sprintf("HTTP %d", status), Status: status}
}

// Remote is a non-2xx response carrying the authority's message and field errors.
func Remote(op string, status int, message string, fields map[string]any) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Kind: KindRemote, Op: op, Message: message, Status: status, Fields: fields}
}
