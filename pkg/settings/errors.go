// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"fmt"
)

var (
	// ErrMissingPrefix indicates a bare scalar or list was serialized
	// without a prefix, leaving it with no key to live under.
	ErrMissingPrefix = fmt.Errorf("scalar value has no key prefix")

	// ErrBadRoot indicates a deserialization target that cannot anchor
	// the key space on its own: maps and scalars need an explicit
	// prefix, and anonymous types have no name to derive one from.
	ErrBadRoot = fmt.Errorf("target type cannot be deserialized without a prefix")

	// ErrInvalidType indicates a Go type the flat representation has no
	// encoding for.
	ErrInvalidType = fmt.Errorf("type cannot be represented in the datastore")

	// ErrBadMapKey indicates a map key that is not usable as a key segment.
	ErrBadMapKey = fmt.Errorf("map key is not a valid key segment")

	// ErrUnknownKey indicates a key with no matching field in the target,
	// reported only in strict mode.
	ErrUnknownKey = fmt.Errorf("key does not correspond to any field")
)

type (
	// MissingPrefixError reports a value that needed an enclosing key
	// but was serialized at the root.
	MissingPrefixError struct {
		Type string
	}

	// InvalidTypeError reports a Go type with no flat representation,
	// such as a channel, function, or unsigned 64-bit integer.
	InvalidTypeError struct {
		Type string
		Path string
	}

	// BadMapKeyError reports a map key that failed segment validation.
	BadMapKeyError struct {
		Key    string
		Reason error
	}

	// UnknownKeyError reports a key that strict deserialization could
	// not place in the target type.
	UnknownKeyError struct {
		Key string
	}

	// ValueError reports a leaf whose canonical text could not be
	// encoded or decoded.
	ValueError struct {
		Key string
		Err error
	}
)

func (e *MissingPrefixError) Error() string {
	return fmt.Sprintf("value of type %s has no key prefix", e.Type)
}

func (e *MissingPrefixError) Unwrap() error { return ErrMissingPrefix }

func (e *InvalidTypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("type %s cannot be represented in the datastore", e.Type)
	}
	return fmt.Sprintf("type %s at %q cannot be represented in the datastore", e.Type, e.Path)
}

func (e *InvalidTypeError) Unwrap() error { return ErrInvalidType }

func (e *BadMapKeyError) Error() string {
	return fmt.Sprintf("map key %q is not a valid key segment: %v", e.Key, e.Reason)
}

func (e *BadMapKeyError) Unwrap() error { return ErrBadMapKey }

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("key %q does not correspond to any field in the target", e.Key)
}

func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

func (e *ValueError) Error() string {
	return fmt.Sprintf("bad value for key %q: %v", e.Key, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }
