// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type (
	// Committed names the layer of the store an operation applies to: the
	// Live layer, or one named Pending transaction. The zero value is Live.
	Committed struct {
		pending bool
		tx      string
	}

	// DataStore is the interface the settings system reads and writes
	// through. Implementations must keep the Live layer and each named
	// Pending transaction fully isolated from one another, and must
	// validate nothing themselves: keys arrive pre-validated by NewKey,
	// and values are opaque canonical text.
	DataStore interface {
		// KeyPopulated reports whether the data key has a value in the
		// given layer.
		KeyPopulated(key Key, committed Committed) (bool, error)

		// ListKeys returns, in lexicographic order, every populated data
		// key that equals prefix or starts with prefix followed by ".".
		// The empty prefix lists every data key. Metadata keys are never
		// returned.
		ListKeys(prefix string, committed Committed) ([]Key, error)

		// ListMetadata returns the metadata keys present for each data key
		// within the prefix. If metaName is non-empty, only metadata keys
		// with that name are returned. Metadata exists only on Live.
		ListMetadata(prefix string, metaName string) (map[Key][]Key, error)

		// Get returns the value stored at the data key, and whether the
		// key is populated in the given layer.
		Get(key Key, committed Committed) (string, bool, error)

		// Set stores the value at the data key in the given layer.
		Set(key Key, value string, committed Committed) error

		// Delete removes the data key from the given layer. Deleting an
		// absent key is not an error.
		Delete(key Key, committed Committed) error

		// GetMetadataRaw returns the metadata value stored at exactly
		// (metaName, dataKey), without prefix inheritance.
		GetMetadataRaw(metaName, dataKey Key) (string, bool, error)

		// SetMetadata stores a metadata value for the data key.
		SetMetadata(metaName, dataKey Key, value string) error

		// DeleteMetadata removes a metadata value from the data key.
		// Deleting absent metadata is not an error.
		DeleteMetadata(metaName, dataKey Key) error

		// Commit merges every key written in the named pending transaction
		// into Live, last writer wins per key, and discards the
		// transaction. It returns the changed keys in lexicographic order.
		// Committing a transaction with no writes returns an empty set and
		// changes nothing. Commit is all-or-nothing: an inconsistent
		// overlay fails with a CorruptionError before Live is touched.
		Commit(transaction string) ([]Key, error)

		// DeletePending discards the named pending transaction without
		// committing it, returning the keys it held.
		DeletePending(transaction string) ([]Key, error)

		// ListTransactions returns the names of the pending transactions
		// that currently hold writes.
		ListTransactions() ([]string, error)
	}
)

// Live addresses the committed, externally visible layer of the store.
func Live() Committed { return Committed{} }

// Pending addresses the named transaction's isolated overlay. Transaction
// names are caller-chosen and may contain any characters.
func Pending(transaction string) Committed {
	return Committed{pending: true, tx: transaction}
}

// IsPending reports whether the layer is a pending transaction.
func (c Committed) IsPending() bool { return c.pending }

// Transaction returns the pending transaction name; ok is false for Live.
func (c Committed) Transaction() (string, bool) { return c.tx, c.pending }

// String returns "live" or the pending transaction's description.
func (c Committed) String() string {
	if c.pending {
		return fmt.Sprintf("pending (%s)", c.tx)
	}
	return "live"
}

// GetMetadata returns the metadata value that applies to the data key,
// taking prefix inheritance into account: the walk starts at the first
// segment of the data key and proceeds to the full key, and the deepest
// populated entry wins. "settings.motd" therefore sees metadata set on
// "settings" unless "settings.motd" has its own entry.
func GetMetadata(ds DataStore, metaName, dataKey Key) (string, bool, error) {
	var (
		value string
		found bool
	)
	segments := dataKey.Segments()
	for i := 1; i <= len(segments); i++ {
		prefix, err := KeyFromSegments(KindData, segments[:i])
		if err != nil {
			return "", false, fmt.Errorf("prefix of valid key failed to make key: %w", err)
		}
		v, ok, err := ds.GetMetadataRaw(metaName, prefix)
		if err != nil {
			return "", false, err
		}
		if ok {
			value, found = v, true
		}
	}
	return value, found, nil
}

// GetPrefix returns every populated data key within the prefix mapped to its
// value. A key that disappears between listing and reading is corruption,
// not a miss.
func GetPrefix(ds DataStore, prefix string, committed Committed) (map[Key]string, error) {
	keys, err := ds.ListKeys(prefix, committed)
	if err != nil {
		return nil, err
	}
	result := make(map[Key]string, len(keys))
	for _, key := range keys {
		value, ok, err := ds.Get(key, committed)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CorruptionError{Msg: "listed key not present", Key: key.Name()}
		}
		result[key] = value
	}
	return result, nil
}

// GetMetadataPrefix returns all metadata for data keys within the prefix,
// as data key -> metadata key -> value. If metaName is non-empty, only
// metadata with that name is returned. Inheritance is not applied; each
// entry is reported on the data key it is stored at.
func GetMetadataPrefix(ds DataStore, prefix string, metaName string) (map[Key]map[Key]string, error) {
	listed, err := ds.ListMetadata(prefix, metaName)
	if err != nil {
		return nil, err
	}
	result := make(map[Key]map[Key]string, len(listed))
	for dataKey, metaKeys := range listed {
		for _, metaKey := range metaKeys {
			value, ok, err := ds.GetMetadataRaw(metaKey, dataKey)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &CorruptionError{
					Msg: fmt.Sprintf("listed metadata %q not present", metaKey.Name()),
					Key: dataKey.Name(),
				}
			}
			if result[dataKey] == nil {
				result[dataKey] = make(map[Key]string)
			}
			result[dataKey][metaKey] = value
		}
	}
	return result, nil
}

// SetKeys stores multiple data keys at once in the given layer.
func SetKeys(ds DataStore, pairs map[Key]string, committed Committed) error {
	keys := maps.Keys(pairs)
	slices.SortFunc(keys, func(a, b Key) int {
		return compareKeyNames(a, b)
	})
	for _, key := range keys {
		if err := ds.Set(key, pairs[key], committed); err != nil {
			return err
		}
	}
	return nil
}

// UnsetKeys removes multiple data keys at once from the given layer.
func UnsetKeys(ds DataStore, keys []Key, committed Committed) error {
	for _, key := range keys {
		if err := ds.Delete(key, committed); err != nil {
			return err
		}
	}
	return nil
}

// compareKeyNames orders keys byte-wise by dotted name.
func compareKeyNames(a, b Key) int {
	switch {
	case a.Name() < b.Name():
		return -1
	case a.Name() > b.Name():
		return 1
	default:
		return 0
	}
}

// sortKeys sorts keys in place in lexicographic name order.
func sortKeys(keys []Key) {
	slices.SortFunc(keys, compareKeyNames)
}
