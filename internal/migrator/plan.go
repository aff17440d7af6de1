// SPDX-License-Identifier: MPL-2.0

package migrator

import (
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/mod/semver"

	"keel/pkg/migrate"
)

// Plan is the ordered chain of units that moves a store from one
// version to another. An empty plan means the store is already where it
// needs to be, or no units cover the gap.
type Plan struct {
	SourceVersion string
	TargetVersion string
	Direction     migrate.Direction
	Units         []Unit
}

// Empty reports whether the plan runs no units.
func (p Plan) Empty() bool { return len(p.Units) == 0 }

// NormalizeVersion validates a semantic version and returns it in the
// "v"-prefixed form the rest of the package uses. The leading "v" is
// optional on input.
func NormalizeVersion(version string) (string, error) {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", &InvalidVersionError{Version: version}
	}
	return v, nil
}

// DirectionFromVersions derives the migration direction from two
// versions. ok is false when they are equal and nothing needs to run.
func DirectionFromVersions(source, target string) (migrate.Direction, bool) {
	switch semver.Compare(target, source) {
	case 1:
		return migrate.Forward, true
	case -1:
		return migrate.Backward, true
	default:
		return 0, false
	}
}

// NewPlan selects and orders the units between two versions. Forward
// takes units with source < version <= target in ascending order;
// Backward takes target < version <= source in descending order, so the
// last unit applied on the way up is the first one undone on the way
// down. Ties on version are broken by name, reversed along with the
// rest for Backward.
func NewPlan(units []Unit, source, target string) (Plan, error) {
	sourceV, err := NormalizeVersion(source)
	if err != nil {
		return Plan{}, err
	}
	targetV, err := NormalizeVersion(target)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{SourceVersion: sourceV, TargetVersion: targetV}

	direction, ok := DirectionFromVersions(sourceV, targetV)
	if !ok {
		return plan, nil
	}
	plan.Direction = direction

	var lower, upper string
	if direction == migrate.Forward {
		lower, upper = sourceV, targetV
	} else {
		lower, upper = targetV, sourceV
	}
	for _, unit := range units {
		if semver.Compare(unit.Version, lower) > 0 && semver.Compare(unit.Version, upper) <= 0 {
			plan.Units = append(plan.Units, unit)
		}
	}

	slices.SortStableFunc(plan.Units, compareUnits)
	if direction == migrate.Backward {
		slices.Reverse(plan.Units)
	}
	return plan, nil
}

// compareUnits orders units by version, then by name.
func compareUnits(a, b Unit) int {
	if c := semver.Compare(a.Version, b.Version); c != 0 {
		return c
	}
	switch {
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	default:
		return 0
	}
}
