// Package faults is the closed set of failure kinds shared by the generation
// and distribution layers. Callers branch on Kind, never on message text.
package faults

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration means credentials or settings are absent. Never retried.
	KindConfiguration
	// KindTransient covers network and provider failures that may succeed on retry.
	KindTransient
	// KindRateLimited is a throttling signal. It carries a RetryAfter hint.
	KindRateLimited
	// KindNotFound aborts an orchestration call before any per-target work.
	KindNotFound
	// KindInvalidShape is malformed backend output.
	KindInvalidShape
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindInvalidShape:
		return "invalid_shape"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind       Kind
	Op         string
	Subject    string
	Message    string
	RetryAfter time.Time
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RetryAfterOf extracts the retry hint of a rate-limit failure.
func RetryAfterOf(err error) (time.Time, bool) {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindRateLimited && !fe.RetryAfter.IsZero() {
		return fe.RetryAfter, true
	}
	return time.Time{}, false
}

func Configuration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func RateLimited(op string, retryAfter time.Time, err error) *Error {
	return &Error{Kind: KindRateLimited, Op: op, RetryAfter: retryAfter, Err: err}
}

// NotFound wraps sentinel so errors.Is(err, sentinel) keeps working.
func NotFound(op, subject string, sentinel error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Subject: subject, Message: subject, Err: sentinel}
}

func InvalidShape(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidShape, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotEnabled is the fixed message recorded when a target has no credentials.
// Downstream tooling matches on it to tell "never tried" from "tried and failed".
func NotEnabled(target string) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("%s is not enabled (missing credentials)", target)}
}
