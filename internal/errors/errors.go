package errors

import (
	"errors"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates a unique constraint violation
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrDomainNotActive indicates the domain is not active
	ErrDomainNotActive = errors.New("domain is not active")

	// ErrMailboxNotFound indicates the mailbox was not found
	ErrMailboxNotFound = errors.New("mailbox not found")

	// ErrMailboxInactive indicates the mailbox has been deactivated
	ErrMailboxInactive = errors.New("mailbox is inactive")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrDomainNotFound indicates the domain was not found
	ErrDomainNotFound = errors.New("domain not found")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")

	// Magic-link errors. Each redemption failure is distinct so the caller
	// can show a precise message ("link already used" vs "link expired").

	// ErrInvalidToken indicates the magic-link token does not exist
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the magic-link token has expired
	ErrExpiredToken = errors.New("token expired")

	// ErrAlreadyUsedToken indicates the magic-link token was already redeemed
	ErrAlreadyUsedToken = errors.New("token already used")

	// Outbound mail errors

	// ErrKeySetup indicates the DKIM signing key could not be loaded.
	// Fatal at startup: the process must not run without signing capability.
	ErrKeySetup = errors.New("signing key setup failed")

	// ErrTransport indicates the mail relay rejected an outbound message
	ErrTransport = errors.New("mail transport error")
)

// Error codes for API responses
const (
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicateEntry   = "DUPLICATE_ENTRY"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeDomainNotActive  = "DOMAIN_NOT_ACTIVE"
	CodeMailboxInactive  = "MAILBOX_INACTIVE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeExpiredToken     = "EXPIRED_TOKEN"
	CodeAlreadyUsedToken = "ALREADY_USED_TOKEN"
	CodeTransportError   = "TRANSPORT_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// GetErrorCode maps an error to its API error code
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrMailboxNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrDomainNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateEntry):
		return CodeDuplicateEntry
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrDomainNotActive):
		return CodeDomainNotActive
	case errors.Is(err, ErrMailboxInactive):
		return CodeMailboxInactive
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrExpiredToken):
		return CodeExpiredToken
	case errors.Is(err, ErrAlreadyUsedToken):
		return CodeAlreadyUsedToken
	case errors.Is(err, ErrTransport):
		return CodeTransportError
	default:
		return CodeInternalError
	}
}
