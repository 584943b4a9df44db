package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies import-time failures. Every failure rolls the
// partial store back before it is surfaced, so callers only ever see
// one structured error per attempt.
type ErrorKind int

const (
	// KindUnrecognizedFormat: no registered parser signature matched.
	KindUnrecognizedFormat ErrorKind = iota
	// KindMalformedInput: a parser started but the stream is
	// inconsistent or truncated.
	KindMalformedInput
	// KindPreprocessFailure: the size-reduction step failed before any
	// store was created.
	KindPreprocessFailure
	// KindIOFailure: disk or file-system error.
	KindIOFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnrecognizedFormat:
		return "unrecognized format"
	case KindMalformedInput:
		return "malformed input"
	case KindPreprocessFailure:
		return "preprocess failure"
	default:
		return "io failure"
	}
}

// ImportError is the single structured error type the import path
// returns.
type ImportError struct {
	Kind ErrorKind
	Err  error
}

func (e *ImportError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// NewImportError wraps err with a kind. A nil err is allowed for
// kinds that need no detail.
func NewImportError(kind ErrorKind, err error) *ImportError {
	return &ImportError{Kind: kind, Err: err}
}

// ErrUnrecognizedFormat is the sentinel returned by format detection
// when nothing matched.
var ErrUnrecognizedFormat = &ImportError{Kind: KindUnrecognizedFormat}

// IsKind reports whether err is an ImportError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind == kind
	}
	return false
}

// ErrSessionNotFound is returned by session lookups for unknown ids.
var ErrSessionNotFound = errors.New("session not found")
