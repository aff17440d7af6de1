// SPDX-License-Identifier: MPL-2.0

package migrate

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
)

// Args is a unit's parsed command line.
type Args struct {
	SourcePath string
	TargetPath string
	Direction  Direction
}

// ParseArgs parses a unit command line of the form
// --source-datastore PATH --target-datastore PATH (--forward|--backward).
// Exactly one direction must be given, both paths are required, and the
// source and target must be different stores: a unit writing into the
// store it reads from would destroy the rollback copy.
func ParseArgs(argv []string) (Args, error) {
	fs := flag.NewFlagSet("migration", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		source   = fs.String("source-datastore", "", "path to the datastore to read")
		target   = fs.String("target-datastore", "", "path to the datastore to write")
		forward  = fs.Bool("forward", false, "migrate to the newer layout")
		backward = fs.Bool("backward", false, "migrate to the older layout")
	)
	if err := fs.Parse(argv); err != nil {
		return Args{}, &UsageError{Msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return Args{}, &UsageError{Msg: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	if *source == "" {
		return Args{}, &UsageError{Msg: "--source-datastore is required"}
	}
	if *target == "" {
		return Args{}, &UsageError{Msg: "--target-datastore is required"}
	}
	if *forward == *backward {
		return Args{}, &UsageError{Msg: "exactly one of --forward or --backward is required"}
	}
	if filepath.Clean(*source) == filepath.Clean(*target) {
		return Args{}, &UsageError{Msg: "source and target datastores must be different"}
	}
	direction := Forward
	if *backward {
		direction = Backward
	}
	return Args{
		SourcePath: *source,
		TargetPath: *target,
		Direction:  direction,
	}, nil
}
