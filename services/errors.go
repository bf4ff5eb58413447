package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind is the machine-readable classification of a domain failure. Handlers
// map kinds to HTTP status codes; callers branch on kinds, never on messages.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidState     Kind = "invalid_state"
	KindPermissionDenied Kind = "permission_denied"
	KindExpired          Kind = "expired"
	KindInactive         Kind = "inactive"
	KindValidation       Kind = "validation"
	KindStorage          Kind = "storage"
	KindExternal         Kind = "external"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind from any error in the chain; unclassified errors
// count as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Message returns the human-readable part of a domain error. Storage errors
// deliberately hide their cause from callers.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return e.Message
	}
	return "an unexpected error occurred"
}

// storage wraps an unexpected store failure so driver details never leak to
// callers while the full cause stays on the error chain for logs.
func storage(err error, message string) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// translate maps recoverable store errors onto domain kinds. Unique-index
// violations arrive as gorm.ErrDuplicatedKey because the dialector runs with
// TranslateError enabled.
func translate(err error, conflictMsg, notFoundMsg string) *Error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return E(KindConflict, conflictMsg)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return E(KindNotFound, notFoundMsg)
	default:
		return storage(err, "store operation failed")
	}
}
