// SPDX-License-Identifier: MPL-2.0

package migrate

import (
	"errors"
	"fmt"
)

// ErrUsage indicates a unit was invoked with a command line that does not
// match the unit contract.
var ErrUsage = errors.New("bad migration arguments")

// UsageError carries the reason a unit command line was rejected, along
// with the expected form.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s\nusage: <unit> --source-datastore PATH --target-datastore PATH (--forward|--backward)", e.Msg)
}

func (e *UsageError) Unwrap() error { return ErrUsage }
