// SPDX-License-Identifier: MPL-2.0

package defaults

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"keel/pkg/datastore"
	"keel/pkg/settings"
)

// LaunchTransaction is the shared pending transaction defaults are staged
// into. The first boot-time commit cycle applies it, which also gives every
// consumer of commit notifications a chance to render the initial
// configuration.
const LaunchTransaction = "keel-launch"

type (
	// Options control how Populate treats data already in the store.
	Options struct {
		// Overwrite writes defaults even where a key or metadata pair
		// already exists. The default is to preserve existing values, so a
		// re-run after an update only fills in what is new.
		Overwrite bool
	}

	// Result reports what Populate did.
	Result struct {
		// SettingsWritten counts settings keys staged into the launch
		// transaction.
		SettingsWritten int

		// MetadataWritten counts metadata pairs written.
		MetadataWritten int

		// OtherWritten counts keys from non-settings tables written to Live.
		OtherWritten int

		// SkippedExisting counts keys and metadata pairs left alone because
		// they already existed.
		SkippedExisting int

		// ClearedTransactions names the stale pending transactions discarded
		// before population.
		ClearedTransactions []string
	}
)

// Populate writes a defaults tree into the datastore. Stale pending
// transactions are discarded first; the [settings] table is flattened and
// staged into LaunchTransaction; [metadata] entries and all other top-level
// tables are written to Live. Existing keys and metadata pairs are
// preserved unless opts.Overwrite is set.
func Populate(ds datastore.DataStore, tree map[string]any, opts Options) (*Result, error) {
	settingsTable, err := tableAt(tree, "settings")
	if err != nil {
		return nil, err
	}
	metadataTable, err := tableAt(tree, "metadata")
	if err != nil {
		return nil, err
	}

	result := &Result{}

	// A failed boot can leave half-written transactions behind; they must
	// not leak into the commit that applies the launch settings.
	transactions, err := ds.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	for _, tx := range transactions {
		if _, err := ds.DeletePending(tx); err != nil {
			return nil, fmt.Errorf("failed to delete pending transaction %s: %w", tx, err)
		}
	}
	result.ClearedTransactions = transactions

	existingData, existingMeta, err := existingSets(ds)
	if err != nil {
		return nil, err
	}

	// Settings are staged, not committed: the launch transaction carries
	// them until the first commit cycle applies them to Live.
	if settingsTable != nil {
		pairs, err := settings.ToPairsWithPrefix("settings", settingsTable)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize default settings: %w", err)
		}
		toWrite := make(map[datastore.Key]string, len(pairs))
		for key, value := range pairs {
			if !opts.Overwrite && existingData[key.Name()] {
				result.SkippedExisting++
				continue
			}
			toWrite[key] = value
		}
		if len(toWrite) > 0 {
			if err := datastore.SetKeys(ds, toWrite, datastore.Pending(LaunchTransaction)); err != nil {
				return nil, fmt.Errorf("failed to stage default settings: %w", err)
			}
		}
		result.SettingsWritten = len(toWrite)
	}

	if metadataTable != nil {
		entries, err := extractMetadata(metadataTable)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !opts.Overwrite && existingMeta[metaPairID(entry.Key, entry.Name)] {
				result.SkippedExisting++
				continue
			}
			if err := ds.SetMetadata(entry.Name, entry.Key, entry.Value); err != nil {
				return nil, fmt.Errorf("failed to write metadata %s for %s: %w", entry.Name, entry.Key, err)
			}
			result.MetadataWritten++
		}
	}

	// Everything that is neither settings nor metadata goes straight to
	// Live under its own top-level prefix.
	otherKeys := maps.Keys(tree)
	slices.Sort(otherKeys)
	for _, topKey := range otherKeys {
		if topKey == "settings" || topKey == "metadata" {
			continue
		}
		pairs, err := settings.ToPairsWithPrefix(topKey, tree[topKey])
		if err != nil {
			return nil, fmt.Errorf("failed to serialize defaults table %s: %w", topKey, err)
		}
		toWrite := make(map[datastore.Key]string, len(pairs))
		for key, value := range pairs {
			if !opts.Overwrite && existingData[key.Name()] {
				result.SkippedExisting++
				continue
			}
			toWrite[key] = value
		}
		if len(toWrite) > 0 {
			if err := datastore.SetKeys(ds, toWrite, datastore.Live()); err != nil {
				return nil, fmt.Errorf("failed to write defaults table %s: %w", topKey, err)
			}
		}
		result.OtherWritten += len(toWrite)
	}

	return result, nil
}

// existingSets snapshots the populated data keys and metadata pairs in Live
// before any default is written, so population can leave them alone.
func existingSets(ds datastore.DataStore) (map[string]bool, map[string]bool, error) {
	keys, err := ds.ListKeys("", datastore.Live())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list existing keys: %w", err)
	}
	existingData := make(map[string]bool, len(keys))
	for _, key := range keys {
		existingData[key.Name()] = true
	}

	metadata, err := ds.ListMetadata("", "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list existing metadata: %w", err)
	}
	existingMeta := make(map[string]bool)
	for dataKey, names := range metadata {
		for _, name := range names {
			existingMeta[metaPairID(dataKey, name)] = true
		}
	}

	return existingData, existingMeta, nil
}

// metaPairID identifies a (data key, metadata name) pair. Metadata names
// are single segments and cannot contain the separator, so joining on a
// slash is unambiguous.
func metaPairID(dataKey, name datastore.Key) string {
	return dataKey.Name() + "/" + name.Name()
}

func tableAt(tree map[string]any, key string) (map[string]any, error) {
	raw, ok := tree[key]
	if !ok {
		return nil, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level %s must be a table, found %s: %w", key, valueKind(raw), ErrInvalidDefaults)
	}
	return table, nil
}
