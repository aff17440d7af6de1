// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is the sentinel error wrapped by InvalidKeyError.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyTooLong is the sentinel error wrapped by KeyTooLongError.
	ErrKeyTooLong = errors.New("key too long")
	// ErrPathTraversal is the sentinel error wrapped by PathTraversalError.
	ErrPathTraversal = errors.New("key path escapes datastore root")
	// ErrCorruption is the sentinel error wrapped by CorruptionError.
	ErrCorruption = errors.New("datastore corruption")
	// ErrStripPrefix is the sentinel error wrapped by StripPrefixError.
	ErrStripPrefix = errors.New("key does not start with prefix")
)

type (
	// InvalidKeyError is returned when a key name violates the segment
	// grammar (empty segment or disallowed character).
	InvalidKeyError struct {
		Name   string
		Reason string
	}

	// KeyTooLongError is returned when a segment or the full dotted name
	// exceeds its length bound.
	KeyTooLongError struct {
		Name   string
		Length int
		Limit  int
	}

	// PathTraversalError is returned when a key's filesystem mapping would
	// resolve outside the datastore root.
	PathTraversalError struct {
		Name string
		Path string
	}

	// CorruptionError is returned when the on-disk store is inconsistent,
	// for example a listed key with no readable value, or a stored file
	// whose name does not decode to a valid key.
	CorruptionError struct {
		Msg  string
		Path string
		Key  string
	}

	// StripPrefixError is returned when a key does not start with the
	// prefix being stripped from it.
	StripPrefixError struct {
		Key    string
		Prefix string
	}
)

// Error implements the error interface.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidKey so callers can use errors.Is.
func (e *InvalidKeyError) Unwrap() error { return ErrInvalidKey }

// Error implements the error interface.
func (e *KeyTooLongError) Error() string {
	return fmt.Sprintf("key %q too long: %d exceeds limit %d", e.Name, e.Length, e.Limit)
}

// Unwrap returns ErrKeyTooLong so callers can use errors.Is.
func (e *KeyTooLongError) Unwrap() error { return ErrKeyTooLong }

// Error implements the error interface.
func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("key %q resolves outside the datastore root: %s", e.Name, e.Path)
}

// Unwrap returns ErrPathTraversal so callers can use errors.Is.
func (e *PathTraversalError) Unwrap() error { return ErrPathTraversal }

// Error implements the error interface.
func (e *CorruptionError) Error() string {
	msg := "datastore corruption: " + e.Msg
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %s)", e.Path)
	}
	return msg
}

// Unwrap returns ErrCorruption so callers can use errors.Is.
func (e *CorruptionError) Unwrap() error { return ErrCorruption }

// Error implements the error interface.
func (e *StripPrefixError) Error() string {
	return fmt.Sprintf("key %q does not start with prefix %q", e.Key, e.Prefix)
}

// Unwrap returns ErrStripPrefix so callers can use errors.Is.
func (e *StripPrefixError) Unwrap() error { return ErrStripPrefix }
