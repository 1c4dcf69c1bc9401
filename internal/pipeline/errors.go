package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure. Kinds differ in who handles them:
// capability and timeout errors propagate to the caller, quality failures are
// absorbed by the retry loop, and parse failures degrade or propagate
// depending on the path (see the research and qc packages).
type ErrorKind string

const (
	// KindCapability means the underlying provider call itself failed
	// (network, auth, rate limit, malformed request). Never retried by the
	// generation loop.
	KindCapability ErrorKind = "capability"

	// KindQuality means the generated artifact scored below the acceptance
	// threshold. Retried internally up to the configured budget.
	KindQuality ErrorKind = "quality"

	// KindParse means a structured-output call returned text that could not
	// be interpreted as the expected shape.
	KindParse ErrorKind = "parse"

	// KindTimeout means an asynchronous task did not reach a terminal state
	// within its wall-clock budget.
	KindTimeout ErrorKind = "timeout"
)

// Error is a pipeline failure with a kind tag and a human-readable message.
// Stages return it through tagged result structs rather than raising it
// across component boundaries.
type Error struct {
	Kind ErrorKind
	Op   string // the operation that failed, e.g. "kling.submit"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a tagged pipeline error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindCapability if err carries no
// tag. Untagged errors are treated as capability failures because that is the
// conservative propagation path (surface immediately, no internal retry).
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindCapability
}

// IsTimeout reports whether err is a timeout-tagged pipeline error.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsParse reports whether err is a parse-tagged pipeline error.
func IsParse(err error) bool {
	return KindOf(err) == KindParse
}
