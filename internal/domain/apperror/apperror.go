// Package apperror defines the error taxonomy shared by every service.
// Each public operation fails with exactly one Kind.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindUnauthenticated     Kind = "unauthenticated"
	KindTransactionConflict Kind = "transaction_conflict"
	KindStorage             Kind = "storage"
	KindTimeout             Kind = "timeout"
	KindRateLimited         Kind = "rate_limited"
)

// Machine-readable codes carried next to the kind.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeDuplicateGoal     = "DUPLICATE_GOAL"
	CodeDuplicateName     = "DUPLICATE_NAME"
	CodeItemReferenced    = "ITEM_REFERENCED"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeConflict          = "TRANSACTION_CONFLICT"
	CodeStorage           = "STORAGE_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeRateLimited       = "RATE_LIMITED"
)

// Error is the structured error returned by services.
type Error struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to the error details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// NewValidation reports malformed input.
func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: message}
}

// NewValidationCode reports a validation failure with a specific code.
func NewValidationCode(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFound reports a missing entity.
func NewNotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock reports a sale that would drive stock negative.
func NewInsufficientStock(productID string, requested, available float64) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Code:    CodeInsufficientStock,
		Message: "insufficient stock",
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewUnauthenticated reports a missing session.
func NewUnauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Code: CodeUnauthenticated, Message: "no active session"}
}

// NewConflict reports an aborted transaction caused by contention.
func NewConflict(err error) *Error {
	return &Error{
		Kind:    KindTransactionConflict,
		Code:    CodeConflict,
		Message: "transaction aborted by a concurrent modification, please retry",
		Err:     err,
	}
}

// NewStorage wraps an infrastructure failure.
func NewStorage(err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: "storage operation failed", Err: err}
}

// NewTimeout reports an operation that exceeded its deadline.
func NewTimeout(err error) *Error {
	return &Error{Kind: KindTimeout, Code: CodeTimeout, Message: "operation timed out", Err: err}
}

// NewRateLimited reports a client that exceeded its request budget.
func NewRateLimited(perMinute int) *Error {
	return &Error{
		Kind:    KindRateLimited,
		Code:    CodeRateLimited,
		Message: "rate limit exceeded",
		Details: map[string]any{"per_minute": perMinute},
	}
}

// KindOf returns the kind of err, or KindStorage for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
