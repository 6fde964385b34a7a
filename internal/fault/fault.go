package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category. Handlers serialize it
// to clients instead of raw provider errors.
type Kind string

const (
	KindProvider         Kind = "PROVIDER_ERROR"
	KindStructuredOutput Kind = "STRUCTURED_OUTPUT_ERROR"
	KindConfiguration    Kind = "CONFIGURATION_ERROR"
	KindIndexingPartial  Kind = "INDEXING_PARTIAL_FAILURE"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindInternal         Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind. cause may be nil.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Provider(message string, cause error) *Error {
	return New(KindProvider, message, cause)
}

func StructuredOutput(message string, cause error) *Error {
	return New(KindStructuredOutput, message, cause)
}

func Configuration(message string, cause error) *Error {
	return New(KindConfiguration, message, cause)
}

func IndexingPartial(message string, cause error) *Error {
	return New(KindIndexingPartial, message, cause)
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal
// for errors that did not originate in this codebase.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
