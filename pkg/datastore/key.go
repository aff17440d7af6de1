// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"fmt"
	"strings"
)

const (
	// MaxSegmentLength is the maximum length of a single key segment.
	MaxSegmentLength = 64
	// MaxKeyLength is the maximum length of a full dotted key name.
	MaxKeyLength = 2048

	// Separator joins key segments into a dotted name.
	Separator = "."
)

type (
	// KeyKind distinguishes data keys from metadata keys.
	KeyKind int

	// Key identifies a value in the data store. A data key is an ordered
	// sequence of one or more segments joined by "."; a metadata key is a
	// single segment naming one piece of metadata about a data key.
	//
	// Keys are validated on construction, compared byte-wise, and safe to
	// use as map keys. The zero Key is invalid; always use NewKey or
	// KeyFromSegments.
	Key struct {
		kind KeyKind
		name string
	}
)

const (
	// KindData marks a key that holds a configuration value.
	KindData KeyKind = iota
	// KindMeta marks a key that names metadata about a data key.
	KindMeta
)

// String returns a human-readable name for the key kind.
func (k KeyKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindMeta:
		return "metadata"
	default:
		return "unknown"
	}
}

// NewKey validates name and returns it as a key of the given kind.
// Data keys have one or more segments; metadata keys have exactly one.
func NewKey(kind KeyKind, name string) (Key, error) {
	if len(name) > MaxKeyLength {
		return Key{}, &KeyTooLongError{Name: name, Length: len(name), Limit: MaxKeyLength}
	}
	segments := strings.Split(name, Separator)
	if kind == KindMeta && len(segments) != 1 {
		return Key{}, &InvalidKeyError{Name: name, Reason: "metadata keys have exactly one segment"}
	}
	for _, segment := range segments {
		if err := checkSegment(name, segment); err != nil {
			return Key{}, err
		}
	}
	return Key{kind: kind, name: name}, nil
}

// KeyFromSegments joins segments with "." and validates the result as a key
// of the given kind.
func KeyFromSegments(kind KeyKind, segments []string) (Key, error) {
	return NewKey(kind, strings.Join(segments, Separator))
}

// MustKey is NewKey for keys known valid at compile time, e.g. in tests and
// constant tables. It panics on invalid input.
func MustKey(kind KeyKind, name string) Key {
	key, err := NewKey(kind, name)
	if err != nil {
		panic(fmt.Sprintf("MustKey(%q): %v", name, err))
	}
	return key
}

// checkSegment validates a single segment of the named key.
func checkSegment(name, segment string) error {
	if segment == "" {
		return &InvalidKeyError{Name: name, Reason: "empty segment"}
	}
	if len(segment) > MaxSegmentLength {
		return &KeyTooLongError{Name: name, Length: len(segment), Limit: MaxSegmentLength}
	}
	for i := 0; i < len(segment); i++ {
		if !validSegmentByte(segment[i]) {
			return &InvalidKeyError{
				Name:   name,
				Reason: fmt.Sprintf("segment %q contains invalid character %q", segment, segment[i]),
			}
		}
	}
	return nil
}

// validSegmentByte reports whether b is allowed in a key segment.
func validSegmentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	}
	return false
}

// Name returns the full dotted name of the key.
func (k Key) Name() string { return k.name }

// Kind returns whether the key is a data or metadata key.
func (k Key) Kind() KeyKind { return k.kind }

// String returns the full dotted name of the key.
func (k Key) String() string { return k.name }

// IsZero reports whether the key is the (invalid) zero value.
func (k Key) IsZero() bool { return k.name == "" }

// Segments returns the key's segments in order. The segment grammar forbids
// ".", so splitting the name is always a faithful decomposition.
func (k Key) Segments() []string {
	return strings.Split(k.name, Separator)
}

// WithinPrefix reports whether the key equals prefix or starts with
// prefix followed by a ".". The empty prefix contains every key.
func (k Key) WithinPrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	return k.name == prefix || strings.HasPrefix(k.name, prefix+Separator)
}

// StripPrefix removes prefix (and the separator after it) from the key,
// returning the remainder as a new key of the same kind. It fails with a
// StripPrefixError if the key does not start with the prefix, or if
// stripping would leave nothing.
func (k Key) StripPrefix(prefix string) (Key, error) {
	if prefix == "" {
		return k, nil
	}
	if !strings.HasPrefix(k.name, prefix+Separator) {
		return Key{}, &StripPrefixError{Key: k.name, Prefix: prefix}
	}
	rest := strings.TrimPrefix(k.name, prefix+Separator)
	key, err := NewKey(k.kind, rest)
	if err != nil {
		return Key{}, err
	}
	return key, nil
}

// Append returns a new key with the other key's segments appended.
func (k Key) Append(other Key) (Key, error) {
	return NewKey(k.kind, k.name+Separator+other.name)
}

// AppendSegment returns a new key with one more segment appended.
func (k Key) AppendSegment(segment string) (Key, error) {
	return NewKey(k.kind, k.name+Separator+segment)
}
