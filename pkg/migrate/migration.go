// SPDX-License-Identifier: MPL-2.0

package migrate

type (
	// Direction tells a unit which way it is being run.
	Direction int

	// MigrationData is one layer of the datastore, decoded: dotted key
	// names to values for data, and data key name to metadata name to
	// value for metadata. Migrations receive it, reshape it, and return
	// it; keys a migration does not recognize must pass through intact.
	MigrationData struct {
		Data     map[string]any
		Metadata map[string]map[string]any
	}

	// Migration transforms a snapshot between two adjacent settings
	// layouts. Forward moves old data to the new layout; Backward
	// restores the old layout from the new one.
	Migration interface {
		Forward(input MigrationData) (MigrationData, error)
		Backward(input MigrationData) (MigrationData, error)
	}
)

const (
	// Forward migrates from an older version to a newer one.
	Forward Direction = iota + 1
	// Backward migrates from a newer version to an older one.
	Backward
)

// String returns the direction as it appears on a unit's command line.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// NewMigrationData returns an empty snapshot with both maps allocated.
func NewMigrationData() MigrationData {
	return MigrationData{
		Data:     make(map[string]any),
		Metadata: make(map[string]map[string]any),
	}
}
