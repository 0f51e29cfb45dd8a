package assistantjs

import (
	"context"
	stderrors "errors"
	"net/http"
)

// Kind classifies every error the client returns.
type Kind int

const (
	KindRequestFailed Kind = iota
	KindValidation
	KindSecurity
	KindNotInitialized
	KindForbiddenAssistant
	KindRateLimited
	KindAccessDenied
	KindAssistantNotFound
	KindProjectNotFound
	KindDomainNotAllowed
	KindServiceUnavailable
	KindTimeout
)

var kindNames = map[Kind]string{
	KindRequestFailed:      "RequestFailedError",
	KindValidation:         "ValidationError",
	KindSecurity:           "SecurityError",
	KindNotInitialized:     "NotInitializedError",
	KindForbiddenAssistant: "ForbiddenAssistantError",
	KindRateLimited:        "RateLimitedError",
	KindAccessDenied:       "AccessDeniedError",
	KindAssistantNotFound:  "AssistantNotFoundError",
	KindProjectNotFound:    "ProjectNotFoundError",
	KindDomainNotAllowed:   "DomainNotAllowedError",
	KindServiceUnavailable: "ServiceUnavailableError",
	KindTimeout:            "TimeoutError",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UnknownError"
}

// Error is the only error type surfaced to callers. Its message is safe to show
// to an end user; the wrapped cause is available through errors.Unwrap.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "assistantjs: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrSecurity           = &Error{Kind: KindSecurity, Message: "insecure connection"}
	ErrNotInitialized     = &Error{Kind: KindNotInitialized, Message: "client not initialized"}
	ErrForbiddenAssistant = &Error{Kind: KindForbiddenAssistant, Message: "assistant not allowed"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Message: "rate limited"}
	ErrAccessDenied       = &Error{Kind: KindAccessDenied, Message: "access denied"}
	ErrAssistantNotFound  = &Error{Kind: KindAssistantNotFound, Message: "assistant not found"}
	ErrProjectNotFound    = &Error{Kind: KindProjectNotFound, Message: "project not found"}
	ErrDomainNotAllowed   = &Error{Kind: KindDomainNotAllowed, Message: "domain not allowed"}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable, Message: "service unavailable"}
	ErrTimeout            = &Error{Kind: KindTimeout, Message: "request timed out"}
	ErrRequestFailed      = &Error{Kind: KindRequestFailed, Message: "request failed"}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the Kind of err, or KindRequestFailed for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindRequestFailed
}

// StatusCode returns the HTTP status tagged on err, or 0 when the failure
// never produced a response.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return se.Status
	}
	return 0
}

// statusError is what the transport returns for a non-2xx response. The body is
// never kept.
type statusError struct {
	Status int
}

func (e *statusError) Error() string {
	return "unexpected status " + http.StatusText(e.Status)
}

// transportError marks a failure that produced no response at all.
type transportError struct {
	Err     error
	Timeout bool
}

func (e *transportError) Error() string {
	if e.Timeout {
		return "request timed out"
	}
	return "network error"
}

func (e *transportError) Unwrap() error {
	return e.Err
}

// operation selects the status mapping: the init path reads 403 and 404 as
// project-level problems, the send path as assistant-level ones.
type operation int

const (
	opInit operation = iota
	opSend
)

// classify turns a transport failure into the caller-facing Error.
func classify(op operation, err error) *Error {
	if err == nil {
		return nil
	}

	var already *Error
	if stderrors.As(err, &already) {
		return already
	}

	var te *transportError
	if stderrors.As(err, &te) {
		if te.Timeout {
			return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
		}
		return &Error{Kind: KindRequestFailed, Message: "network error, check your connection", Err: err}
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	status := StatusCode(err)
	e := &Error{Status: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimited, "too many requests, wait before retrying"
	case status == http.StatusForbidden && op == opInit:
		e.Kind, e.Message = KindDomainNotAllowed, "this domain is not authorized for the project"
	case status == http.StatusNotFound && op == opInit:
		e.Kind, e.Message = KindProjectNotFound, "project not found or inactive"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind, e.Message = KindAccessDenied, "access denied, the session may have expired"
	case status == http.StatusNotFound:
		e.Kind, e.Message = KindAssistantNotFound, "assistant not found or inactive"
	case status >= http.StatusInternalServerError:
		e.Kind, e.Message = KindServiceUnavailable, "service temporarily unavailable"
	default:
		e.Kind, e.Message = KindRequestFailed, "request failed"
	}
	return e
}
