package domain

import "fmt"

// ErrorKind is the abstract error taxonomy of spec.md §7, mapped to HTTP
// status codes at the httpapi boundary, never in the service layer.
type ErrorKind string

const (
	KindValidation     ErrorKind = "ValidationError"
	KindAuth           ErrorKind = "AuthError"
	KindRole           ErrorKind = "RoleError"
	KindOutOfScope     ErrorKind = "OutOfScope"
	KindNotFound       ErrorKind = "NotFound"
	KindConflict       ErrorKind = "Conflict"
	KindPayloadTooLarge ErrorKind = "PayloadTooLarge"
	KindPrecondition   ErrorKind = "Precondition"
	KindInternal       ErrorKind = "InternalError"
)

// ServiceError is the typed error every service function returns instead of
// an ad-hoc error string; httpapi maps Kind to an HTTP status.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string // per-field validation messages, KindValidation only
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewValidationError(fields map[string]string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func NewAuthError(msg string) *ServiceError {
	return &ServiceError{Kind: KindAuth, Message: msg}
}

func NewRoleError(msg string) *ServiceError {
	return &ServiceError{Kind: KindRole, Message: msg}
}

func NewOutOfScopeError() *ServiceError {
	return &ServiceError{Kind: KindOutOfScope, Message: "not found"}
}

func NewNotFoundError(msg string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: msg}
}

func NewPayloadTooLargeError(msg string) *ServiceError {
	return &ServiceError{Kind: KindPayloadTooLarge, Message: msg}
}

func NewPreconditionError(msg string) *ServiceError {
	return &ServiceError{Kind: KindPrecondition, Message: msg}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, Message: "internal error", Err: err}
}
