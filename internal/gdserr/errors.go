// Package gdserr defines the failure kinds surfaced by the graph analytics
// orchestrator. Every failure carries a Kind so the transport layer can pick a
// status code while the engine message is passed through verbatim.
package gdserr

import (
	"errors"
	"net/http"
)

// Kind categorizes orchestrator failures.
type Kind string

const (
	// KindProjectionCreateFailed indicates the engine rejected a projection create or drop command.
	KindProjectionCreateFailed Kind = "ProjectionCreateFailed"

	// KindNodeNotFound indicates a shortest-path selector matched no node.
	KindNodeNotFound Kind = "NodeNotFound"

	// KindAmbiguousSelector indicates a shortest-path selector matched more than one node.
	KindAmbiguousSelector Kind = "AmbiguousSelector"

	// KindEngineExecutionFailed indicates a transport, protocol or engine-side failure.
	KindEngineExecutionFailed Kind = "EngineExecutionFailed"

	// KindMalformedRow indicates the engine returned a row missing an expected field.
	KindMalformedRow Kind = "MalformedRow"

	// KindInvalidRequest indicates the caller supplied unusable parameters.
	KindInvalidRequest Kind = "InvalidRequest"
)

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Unavailable is set when the engine was not contacted at all,
	// e.g. because the circuit breaker is open.
	Unavailable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a plain message.
func Errorf(kind Kind, op string, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// ProjectionCreateFailed wraps an engine rejection of a projection command.
func ProjectionCreateFailed(op string, err error) *Error {
	return New(KindProjectionCreateFailed, op, unwrapEngine(err))
}

// EngineExecutionFailed wraps a transport or engine failure.
func EngineExecutionFailed(op string, err error) *Error {
	return New(KindEngineExecutionFailed, op, err)
}

// MalformedRow reports a raw row missing a field the mapping requires.
func MalformedRow(op string, msg string) *Error {
	return Errorf(KindMalformedRow, op, msg)
}

// KindOf returns the kind of the first tagged error in err's chain, or the
// empty Kind when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains a tagged error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the router responds with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNodeNotFound:
		return http.StatusNotFound
	case KindAmbiguousSelector:
		return http.StatusConflict
	case KindProjectionCreateFailed:
		return http.StatusBadGateway
	case KindEngineExecutionFailed:
		if e.Unavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// unwrapEngine strips an EngineExecutionFailed tag so the projection error
// keeps the engine's message without double tagging.
func unwrapEngine(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindEngineExecutionFailed && e.Err != nil {
		return e.Err
	}
	return err
}
