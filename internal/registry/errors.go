package registry

import (
	"errors"
	"fmt"
)

// Error codes reported by the registry.
const (
	// ErrCodeHandlerNotFound means the type or the handler is unknown.
	ErrCodeHandlerNotFound = "HANDLER_NOT_FOUND"

	// ErrCodeInvalidModule means a module cannot be registered.
	ErrCodeInvalidModule = "INVALID_MODULE"

	// ErrCodeManifestMismatch means registered code does not satisfy a
	// declared type.
	ErrCodeManifestMismatch = "MANIFEST_MISMATCH"
)

// RegistryError is a coded registry failure.
type RegistryError struct {
	Code     string
	TypeName string
	Handler  string
	Message  string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	switch {
	case e.TypeName != "" && e.Handler != "":
		return fmt.Sprintf("%s: %s (type=%s, handler=%s)", e.Code, e.Message, e.TypeName, e.Handler)
	case e.TypeName != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.TypeName)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsHandlerNotFound reports whether err is an unresolved type or handler.
func IsHandlerNotFound(err error) bool {
	var re *RegistryError
	return errors.As(err, &re) && re.Code == ErrCodeHandlerNotFound
}

func handlerNotFound(typeName, handler, msg string) *RegistryError {
	return &RegistryError{
		Code:     ErrCodeHandlerNotFound,
		TypeName: typeName,
		Handler:  handler,
		Message:  msg,
	}
}
