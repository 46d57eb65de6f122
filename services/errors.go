package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure categories returned by the services.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindUpstream      ErrorKind = "upstream"
	KindInternal      ErrorKind = "internal"
)

// Error: ошибка сервисного слоя. Message безопасно отдавать клиенту, Cause только в лог.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status overrides the default HTTP status for the kind when non-zero.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrMatchNotFound       = &Error{Kind: KindNotFound, Message: "Match not found"}
	ErrSportNotFound       = &Error{Kind: KindNotFound, Message: "Sport not found"}
	ErrEventYearNotFound   = &Error{Kind: KindNotFound, Message: "Event year not found"}
	ErrNoActiveEventYear   = &Error{Kind: KindNotFound, Message: "No active event year found. Please contact administrator."}
	ErrCoordinatorRequired = &Error{Kind: KindAuthorization, Message: "Admin or coordinator access required for this sport"}
	ErrUserSetAuditFields  = &Error{
		Kind:    KindValidation,
		Message: "createdBy and updatedBy fields cannot be set by user. They are automatically set from authentication token.",
	}
	ErrInvalidGender = &Error{Kind: KindValidation, Message: `Gender parameter is required and must be "Male" or "Female"`}
	// ErrConcurrentModification is returned when the stored version moved under an update.
	ErrConcurrentModification = &Error{
		Kind:    KindConflict,
		Status:  http.StatusConflict,
		Message: "Match was modified by another request. Reload and try again.",
	}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func upstreamError(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

func internalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf returns the kind of a service error, KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
