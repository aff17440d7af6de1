// SPDX-License-Identifier: MPL-2.0

package defaults

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefaults indicates a defaults tree whose shape violates the
	// rules described in the package documentation.
	ErrInvalidDefaults = errors.New("invalid defaults")

	// ErrMergeConflict indicates two defaults fragments assign values of
	// different types to the same key.
	ErrMergeConflict = errors.New("conflicting types in defaults fragments")
)

type (
	// InvalidMetadataError reports a metadata entry whose value is neither a
	// table to descend into nor a string or array leaf.
	InvalidMetadataError struct {
		// Path is the dotted location inside the [metadata] table.
		Path string
		// Reason describes what was found there.
		Reason string
	}

	// MergeConflictError reports the location where two fragments disagree
	// on a value's type.
	MergeConflictError struct {
		Path  string
		Left  string
		Right string
	}
)

func (e *InvalidMetadataError) Error() string {
	return fmt.Sprintf("invalid metadata at %s: %s", e.Path, e.Reason)
}

func (e *InvalidMetadataError) Unwrap() error { return ErrInvalidDefaults }

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("conflicting types at %s: cannot merge %s over %s", e.Path, e.Right, e.Left)
}

func (e *MergeConflictError) Unwrap() error { return ErrMergeConflict }
