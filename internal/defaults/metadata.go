// SPDX-License-Identifier: MPL-2.0

package defaults

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"keel/pkg/datastore"
	"keel/pkg/settings"
)

// MetadataEntry is one (data key, metadata name, value) triple extracted
// from the [metadata] table of a defaults file.
type MetadataEntry struct {
	// Key is the data key the metadata describes.
	Key datastore.Key

	// Name is the single-segment metadata name.
	Name datastore.Key

	// Value is the canonical text encoding of the metadata value.
	Value string
}

// extractMetadata flattens a [metadata] table into entries. Tables descend
// one key segment at a time; a string or array value is a leaf whose
// enclosing path addresses the data key and whose own key is the metadata
// name. Anything else is malformed:
//
//	[metadata.settings.motd]
//	affected-services = ["motd"]
//
// yields Key "settings.motd", Name "affected-services".
func extractMetadata(tree map[string]any) ([]MetadataEntry, error) {
	var entries []MetadataEntry
	if err := walkMetadata(nil, tree, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkMetadata(path []string, table map[string]any, entries *[]MetadataEntry) error {
	keys := maps.Keys(table)
	slices.Sort(keys)

	for _, key := range keys {
		switch value := table[key].(type) {
		case map[string]any:
			childPath := append(slices.Clone(path), key)
			if err := walkMetadata(childPath, value, entries); err != nil {
				return err
			}
		case string, []any:
			if len(path) == 0 {
				return &InvalidMetadataError{Path: key, Reason: "metadata leaf must be nested under a data key"}
			}
			dataKey, err := datastore.KeyFromSegments(datastore.KindData, path)
			if err != nil {
				return fmt.Errorf("bad metadata location %s: %w", strings.Join(path, "."), err)
			}
			name, err := datastore.KeyFromSegments(datastore.KindMeta, []string{key})
			if err != nil {
				return fmt.Errorf("bad metadata name %q: %w", key, err)
			}
			text, err := settings.EncodeScalar(value)
			if err != nil {
				return fmt.Errorf("failed to encode metadata %s for %s: %w", key, dataKey, err)
			}
			*entries = append(*entries, MetadataEntry{Key: dataKey, Name: name, Value: text})
		default:
			at := joinPath(strings.Join(path, "."), key)
			return &InvalidMetadataError{
				Path:   at,
				Reason: fmt.Sprintf("expected table, string, or array, found %s", valueKind(value)),
			}
		}
	}
	return nil
}
