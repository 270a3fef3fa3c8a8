package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrBatchJobNotFound = errors.New("batch job not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
	ErrConfiguration    = errors.New("configuration resolution failed")
	ErrBackend          = errors.New("answering backend failure")
	ErrPanic            = errors.New("panic")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

var errorKinds = []struct {
	kind error
	name string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrBatchJobNotFound, "NotFound"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrTemporary, "Temporary"},
	{ErrPanic, "Panic"},
	{ErrBackend, "BackendError"},
	{context.DeadlineExceeded, "DeadlineExceeded"},
	{context.Canceled, "Canceled"},
}

// ErrorKind names the failure class of err. Unclassified errors are
// reported as InternalError.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "InternalError"
}

// Failure is the opaque record of a failed operation: its kind and message.
type Failure struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
}

func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Kind: ErrorKind(err), Message: err.Error()}
}

func (f Failure) String() string {
	return f.Kind + ": " + f.Message
}
