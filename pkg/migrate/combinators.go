// SPDX-License-Identifier: MPL-2.0

package migrate

import (
	"strings"

	"github.com/charmbracelet/log"
)

type (
	// AddSettings handles settings that first appear in the newer
	// version. There is nothing to do on upgrade, since the new settings
	// are populated from defaults afterwards; on downgrade the keys are
	// removed so the older version never sees settings it cannot know.
	AddSettings struct {
		Settings []string
	}

	// AddPrefixes is AddSettings for whole subtrees: on downgrade it
	// removes every data key and metadata entry at or under any of the
	// given dotted prefixes.
	AddPrefixes struct {
		Prefixes []string
	}

	// RemoveSettings handles settings the newer version dropped. The keys
	// are removed on upgrade so the newer version never sees settings it
	// cannot know; the older version defaults or regenerates them, so
	// downgrade has nothing to restore.
	RemoveSettings struct {
		Settings []string
	}

	// RemovePrefixes is RemoveSettings for whole subtrees: on upgrade it
	// removes every data key and metadata entry at or under any of the
	// given dotted prefixes.
	RemovePrefixes struct {
		Prefixes []string
	}

	// ReplaceString swaps one known string value for another. A value
	// that does not match exactly is left alone.
	ReplaceString struct {
		Setting string
		OldVal  string
		NewVal  string
	}

	// ReplaceLists swaps one known list of strings for another. The
	// stored list must match the old list exactly, order included.
	ReplaceLists struct {
		Setting string
		OldVals []string
		NewVals []string
	}

	// ReplaceMetadataLists is ReplaceLists for a metadata entry.
	ReplaceMetadataLists struct {
		Setting  string
		Metadata string
		OldVals  []string
		NewVals  []string
	}

	// AddMetadata handles metadata that first appears in the newer
	// version: no work on upgrade, removal of the named entries on
	// downgrade.
	AddMetadata struct {
		Setting  string
		Metadata []string
	}

	// RemoveMetadata drops metadata entries the newer version no longer
	// carries. The old values are gone once removed, so downgrade cannot
	// restore them and does nothing.
	RemoveMetadata struct {
		Setting  string
		Metadata []string
	}

	// NoOp changes nothing in either direction. It exists so a version
	// can ship a unit that only marks a boundary.
	NoOp struct{}
)

func (m AddSettings) Forward(input MigrationData) (MigrationData, error) {
	log.Debug("added settings need no forward work", "settings", m.Settings)
	return input, nil
}

func (m AddSettings) Backward(input MigrationData) (MigrationData, error) {
	for _, name := range m.Settings {
		if value, ok := input.Data[name]; ok {
			delete(input.Data, name)
			log.Info("removed setting unknown to older version", "key", name, "value", value)
		}
	}
	return input, nil
}

func (m AddPrefixes) Forward(input MigrationData) (MigrationData, error) {
	log.Debug("added prefixes need no forward work", "prefixes", m.Prefixes)
	return input, nil
}

func (m AddPrefixes) Backward(input MigrationData) (MigrationData, error) {
	for name := range input.Data {
		if withinAnyPrefix(name, m.Prefixes) {
			delete(input.Data, name)
			log.Info("removed setting unknown to older version", "key", name)
		}
	}
	for name := range input.Metadata {
		if withinAnyPrefix(name, m.Prefixes) {
			delete(input.Metadata, name)
			log.Info("removed metadata unknown to older version", "key", name)
		}
	}
	return input, nil
}

func (m RemoveSettings) Forward(input MigrationData) (MigrationData, error) {
	for _, name := range m.Settings {
		if value, ok := input.Data[name]; ok {
			delete(input.Data, name)
			log.Info("removed setting dropped by newer version", "key", name, "value", value)
		}
	}
	return input, nil
}

func (m RemoveSettings) Backward(input MigrationData) (MigrationData, error) {
	// The older version defaults or regenerates these settings itself.
	log.Debug("removed settings need no backward work", "settings", m.Settings)
	return input, nil
}

func (m RemovePrefixes) Forward(input MigrationData) (MigrationData, error) {
	for name := range input.Data {
		if withinAnyPrefix(name, m.Prefixes) {
			delete(input.Data, name)
			log.Info("removed setting dropped by newer version", "key", name)
		}
	}
	for name := range input.Metadata {
		if withinAnyPrefix(name, m.Prefixes) {
			delete(input.Metadata, name)
			log.Info("removed metadata dropped by newer version", "key", name)
		}
	}
	return input, nil
}

func (m RemovePrefixes) Backward(input MigrationData) (MigrationData, error) {
	log.Debug("removed prefixes need no backward work", "prefixes", m.Prefixes)
	return input, nil
}

func (m ReplaceString) Forward(input MigrationData) (MigrationData, error) {
	replaceString(input.Data, m.Setting, m.OldVal, m.NewVal)
	return input, nil
}

func (m ReplaceString) Backward(input MigrationData) (MigrationData, error) {
	replaceString(input.Data, m.Setting, m.NewVal, m.OldVal)
	return input, nil
}

func (m ReplaceLists) Forward(input MigrationData) (MigrationData, error) {
	replaceList(input.Data, m.Setting, m.OldVals, m.NewVals)
	return input, nil
}

func (m ReplaceLists) Backward(input MigrationData) (MigrationData, error) {
	replaceList(input.Data, m.Setting, m.NewVals, m.OldVals)
	return input, nil
}

func (m ReplaceMetadataLists) Forward(input MigrationData) (MigrationData, error) {
	replaceList(input.Metadata[m.Setting], m.Metadata, m.OldVals, m.NewVals)
	return input, nil
}

func (m ReplaceMetadataLists) Backward(input MigrationData) (MigrationData, error) {
	replaceList(input.Metadata[m.Setting], m.Metadata, m.NewVals, m.OldVals)
	return input, nil
}

func (m AddMetadata) Forward(input MigrationData) (MigrationData, error) {
	log.Debug("added metadata needs no forward work", "key", m.Setting, "metadata", m.Metadata)
	return input, nil
}

func (m AddMetadata) Backward(input MigrationData) (MigrationData, error) {
	entries, ok := input.Metadata[m.Setting]
	if !ok {
		return input, nil
	}
	for _, name := range m.Metadata {
		if value, present := entries[name]; present {
			delete(entries, name)
			log.Info("removed metadata unknown to older version",
				"key", m.Setting, "metadata", name, "value", value)
		}
	}
	if len(entries) == 0 {
		delete(input.Metadata, m.Setting)
	}
	return input, nil
}

func (m RemoveMetadata) Forward(input MigrationData) (MigrationData, error) {
	entries, ok := input.Metadata[m.Setting]
	if !ok {
		return input, nil
	}
	for _, name := range m.Metadata {
		if value, present := entries[name]; present {
			delete(entries, name)
			log.Info("removed metadata dropped by newer version",
				"key", m.Setting, "metadata", name, "value", value)
		}
	}
	if len(entries) == 0 {
		delete(input.Metadata, m.Setting)
	}
	return input, nil
}

func (m RemoveMetadata) Backward(input MigrationData) (MigrationData, error) {
	// The removed values were discarded on the way up; there is nothing
	// to restore.
	log.Debug("removed metadata cannot be restored", "key", m.Setting, "metadata", m.Metadata)
	return input, nil
}

func (m NoOp) Forward(input MigrationData) (MigrationData, error) { return input, nil }

func (m NoOp) Backward(input MigrationData) (MigrationData, error) { return input, nil }

// replaceString swaps data[setting] from one known string to another.
// Any other value, or any other type, is left alone.
func replaceString(data map[string]any, setting, from, to string) {
	value, ok := data[setting]
	if !ok {
		log.Debug("setting not present, nothing to replace", "key", setting)
		return
	}
	current, ok := value.(string)
	if !ok {
		log.Warn("setting is not a string, leaving value alone", "key", setting, "value", value)
		return
	}
	if current != from {
		log.Debug("setting does not match expected value, leaving it alone",
			"key", setting, "value", current, "expected", from)
		return
	}
	data[setting] = to
	log.Info("replaced setting value", "key", setting, "old", from, "new", to)
}

// replaceList swaps data[setting] from one known list of strings to
// another. The stored list must match element for element.
func replaceList(data map[string]any, setting string, from, to []string) {
	if data == nil {
		return
	}
	value, ok := data[setting]
	if !ok {
		log.Debug("setting not present, nothing to replace", "key", setting)
		return
	}
	if !stringListEqual(value, from) {
		log.Debug("list does not match expected value, leaving it alone",
			"key", setting, "value", value, "expected", from)
		return
	}
	data[setting] = anyList(to)
	log.Info("replaced list value", "key", setting, "old", from, "new", to)
}

// stringListEqual reports whether v is a list of strings equal to want,
// in order. Snapshots decode lists as []any, but []string is accepted
// for values a previous migration set.
func stringListEqual(v any, want []string) bool {
	switch list := v.(type) {
	case []string:
		if len(list) != len(want) {
			return false
		}
		for i := range list {
			if list[i] != want[i] {
				return false
			}
		}
		return true
	case []any:
		if len(list) != len(want) {
			return false
		}
		for i := range list {
			s, ok := list[i].(string)
			if !ok || s != want[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func anyList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// withinAnyPrefix reports whether the dotted name equals one of the
// prefixes or sits underneath one. Segment boundaries are respected:
// "settings.motd-x" is not under "settings.motd".
func withinAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if name == prefix || strings.HasPrefix(name, prefix+".") {
			return true
		}
	}
	return false
}
