package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxMessageLen bounds operator-visible diagnostic messages stored
// with harvest results.
const MaxMessageLen = 512

var (
	// ErrInvalid marks a rejected service definition. Wrapped by the
	// specific validation failure.
	ErrInvalid = errors.New("invalid service definition")

	// ErrNotFound is returned for operations on unknown service ids.
	ErrNotFound = errors.New("service not found")

	// ErrAlreadyRunning is returned when a harvest is requested for a
	// service whose previous harvest is still in flight. It is a
	// caller-visible rejection, not an internal fault.
	ErrAlreadyRunning = errors.New("harvest already running")

	// ErrTypeLocked is returned when an update tries to change the
	// service type after datasets have been harvested under it.
	ErrTypeLocked = errors.New("service type is immutable once datasets have been harvested")
)

// TransportError wraps a network or timeout failure while talking to
// an upstream service. Retried only on the next scheduled cycle.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a malformed upstream document. Not retried: the
// same document would fail the same way.
type ParseError struct {
	URL    string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable document from %s: %s", e.URL, e.Detail)
}

// Truncate bounds s to max bytes, marking the cut with an ellipsis.
// The cut is backed up to a rune boundary so the result stays valid
// UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	if max > 3 {
		cut = max - 3
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if max <= 3 {
		return s[:cut]
	}
	return s[:cut] + "..."
}
