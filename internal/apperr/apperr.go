// Package apperr defines the error taxonomy shared by the OBS and remote
// services and its mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the error taxonomy.
type Kind int

const (
	// KindInternal is any failure outside the taxonomy.
	KindInternal Kind = iota
	KindRequestMalformed
	KindUnauthorized
	KindNotFound
	KindMethodNotAllowed
	KindValidationFailed
	KindExecutionFailed
	KindUpstreamFailure
)

var kindNames = map[Kind]string{
	KindInternal:         "Internal",
	KindRequestMalformed: "RequestMalformed",
	KindUnauthorized:     "Unauthorized",
	KindNotFound:         "NotFound",
	KindMethodNotAllowed: "MethodNotAllowed",
	KindValidationFailed: "ValidationFailed",
	KindExecutionFailed:  "ExecutionFailed",
	KindUpstreamFailure:  "UpstreamFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// statusByKind is the only place kinds are turned into HTTP statuses.
var statusByKind = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindRequestMalformed: http.StatusBadRequest,
	KindUnauthorized:     http.StatusUnauthorized,
	KindNotFound:         http.StatusNotFound,
	KindMethodNotAllowed: http.StatusMethodNotAllowed,
	KindValidationFailed: http.StatusBadRequest,
	KindExecutionFailed:  http.StatusBadRequest,
	KindUpstreamFailure:  http.StatusInternalServerError,
}

// RequestContext tells which part of an HTTP request was malformed.
type RequestContext string

const (
	ContextNone        RequestContext = ""
	ContextURL         RequestContext = "url"
	ContextMethod      RequestContext = "method"
	ContextContentType RequestContext = "contentType"
	ContextBodyFormat  RequestContext = "bodyFormat"
	ContextBodyContent RequestContext = "bodyContent"
)

// Invalid identifies one control that failed validation.
type Invalid struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// Error is the single error type of the taxonomy.
type Error struct {
	Kind    Kind
	Message string
	Context RequestContext

	// Internal marks an execution failure as the server's fault
	// (a configured macro failed) rather than the caller's.
	Internal bool

	// Index is the position of the failing control for execution
	// failures, -1 otherwise.
	Index int

	// Invalid lists the rejected controls of a validation failure.
	Invalid []Invalid

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Context != ContextNone {
		return fmt.Sprintf("%s<%s>: %s", e.Kind, e.Context, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	if e.Internal {
		return http.StatusInternalServerError
	}
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Status returns the HTTP status of any error: taxonomy errors use the
// kind table, everything else is 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of err, KindInternal when err is not a
// taxonomy error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a taxonomy error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Index: -1}
}

// Malformed reports a bad request; the context selects the status
// (url → 404, method → 405, anything else → 400).
func Malformed(ctx RequestContext, format string, args ...any) *Error {
	switch ctx {
	case ContextURL:
		e := newError(KindNotFound, format, args...)
		e.Context = ctx
		return e
	case ContextMethod:
		e := newError(KindMethodNotAllowed, format, args...)
		e.Context = ctx
		return e
	}
	e := newError(KindRequestMalformed, format, args...)
	e.Context = ctx
	return e
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// ValidationFailed reports rejected controls. Nothing was executed.
func ValidationFailed(invalid []Invalid, format string, args ...any) *Error {
	e := newError(KindValidationFailed, format, args...)
	e.Invalid = invalid
	return e
}

// ExecutionFailed reports a backend failure at control index.
func ExecutionFailed(internal bool, index int, err error) *Error {
	return &Error{
		Kind:     KindExecutionFailed,
		Message:  err.Error(),
		Internal: internal,
		Index:    index,
		Err:      err,
	}
}

// Upstream wraps a control-channel failure, keeping its message.
func Upstream(err error) *Error {
	return &Error{
		Kind:    KindUpstreamFailure,
		Message: err.Error(),
		Index:   -1,
		Err:     err,
	}
}
