package engine

import (
	"errors"
	"fmt"
)

// WeaveError is a rejected weave operation. The collection and the tree
// are unchanged when one is returned.
type WeaveError struct {
	// Code identifies the error category.
	Code WeaveErrorCode

	// Message is a human-readable description.
	Message string

	// Collection is the bound collection the operation targeted, if known.
	Collection string

	// Key is the canonical identity key involved, if any.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// WeaveErrorCode categorizes weave errors.
type WeaveErrorCode string

const (
	// ErrCodeDuplicateKey means a record's identity key is already present.
	ErrCodeDuplicateKey WeaveErrorCode = "DUPLICATE_KEY"

	// ErrCodeNotFound means the target does not map to a tracked fragment,
	// or the element is not inside any bound container.
	ErrCodeNotFound WeaveErrorCode = "NOT_FOUND"

	// ErrCodeMissingKey means a record has no identity key (absent or null).
	ErrCodeMissingKey WeaveErrorCode = "MISSING_KEY"

	// ErrCodeMissingTemplate means a container has no usable <template>.
	ErrCodeMissingTemplate WeaveErrorCode = "MISSING_TEMPLATE"
)

// Error implements the error interface.
func (e *WeaveError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Collection != "" && e.Key != "":
		return fmt.Sprintf("%s: %s (collection=%s, key=%s)", e.Code, msg, e.Collection, e.Key)
	case e.Collection != "":
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, msg, e.Collection)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause.
func (e *WeaveError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code WeaveErrorCode) bool {
	var we *WeaveError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// IsDuplicateKey reports whether err is a duplicate identity key.
func IsDuplicateKey(err error) bool { return hasCode(err, ErrCodeDuplicateKey) }

// IsNotFound reports whether err is an untracked target.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsMissingKey reports whether err is a record without identity key.
func IsMissingKey(err error) bool { return hasCode(err, ErrCodeMissingKey) }

// IsMissingTemplate reports whether err is a container configuration error.
func IsMissingTemplate(err error) bool { return hasCode(err, ErrCodeMissingTemplate) }

// CodeOf returns the code of a weave error, or "" for any other error.
func CodeOf(err error) WeaveErrorCode {
	var we *WeaveError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

func duplicateKey(collection, key string) *WeaveError {
	return &WeaveError{
		Code:       ErrCodeDuplicateKey,
		Message:    "identity key already present",
		Collection: collection,
		Key:        key,
	}
}

func missingKey(collection, field string) *WeaveError {
	return &WeaveError{
		Code:       ErrCodeMissingKey,
		Message:    fmt.Sprintf("record has no %q field", field),
		Collection: collection,
	}
}

func notFound(collection, key, msg string) *WeaveError {
	return &WeaveError{
		Code:       ErrCodeNotFound,
		Message:    msg,
		Collection: collection,
		Key:        key,
	}
}
