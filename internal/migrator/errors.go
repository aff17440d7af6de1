// SPDX-License-Identifier: MPL-2.0

package migrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidVersion indicates a version string that is not a
	// semantic version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrUnitFailed indicates a migration unit exited non-zero or could
	// not be started.
	ErrUnitFailed = errors.New("migration unit failed")
)

type (
	// InvalidVersionError reports a version string that could not be
	// parsed as a semantic version.
	InvalidVersionError struct {
		Version string
	}

	// UnitError reports a migration unit run that failed, with whatever
	// the unit wrote to stderr.
	UnitError struct {
		Unit     Unit
		ExitCode int
		Stderr   string
		Err      error
	}
)

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("%q is not a valid semantic version", e.Version)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

func (e *UnitError) Error() string {
	msg := fmt.Sprintf("migration unit %s (version %s) failed", e.Unit.Name, e.Unit.Version)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += fmt.Sprintf("\nunit stderr:\n%s", stderr)
	}
	return msg
}

func (e *UnitError) Unwrap() error { return ErrUnitFailed }
