// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"sync"

	"golang.org/x/exp/maps"
)

// MemoryDataStore keeps the whole store in process memory. It mirrors
// FilesystemDataStore's semantics exactly and is intended for tests and for
// embedding in tools that never persist.
type MemoryDataStore struct {
	mu       sync.RWMutex
	live     map[Key]string
	pending  map[string]map[Key]string
	metadata map[Key]map[Key]string
}

var _ DataStore = (*MemoryDataStore)(nil)

// NewMemory returns an empty in-memory datastore.
func NewMemory() *MemoryDataStore {
	return &MemoryDataStore{
		live:     make(map[Key]string),
		pending:  make(map[string]map[Key]string),
		metadata: make(map[Key]map[Key]string),
	}
}

// layer returns the map holding the given layer, or nil for a pending
// transaction that has no writes.
func (s *MemoryDataStore) layer(committed Committed) map[Key]string {
	if tx, ok := committed.Transaction(); ok {
		return s.pending[tx]
	}
	return s.live
}

// layerForWrite returns the map holding the given layer, creating the
// pending transaction on first write.
func (s *MemoryDataStore) layerForWrite(committed Committed) map[Key]string {
	if tx, ok := committed.Transaction(); ok {
		if s.pending[tx] == nil {
			s.pending[tx] = make(map[Key]string)
		}
		return s.pending[tx]
	}
	return s.live
}

// KeyPopulated implements DataStore.
func (s *MemoryDataStore) KeyPopulated(key Key, committed Committed) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layer(committed)[key]
	return ok, nil
}

// ListKeys implements DataStore.
func (s *MemoryDataStore) ListKeys(prefix string, committed Committed) ([]Key, error) {
	if err := checkListPrefix(prefix); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []Key
	for key := range s.layer(committed) {
		if key.WithinPrefix(prefix) {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	return keys, nil
}

// ListMetadata implements DataStore.
func (s *MemoryDataStore) ListMetadata(prefix string, metaName string) (map[Key][]Key, error) {
	if err := checkListPrefix(prefix); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[Key][]Key)
	for dataKey, metaValues := range s.metadata {
		if !dataKey.WithinPrefix(prefix) {
			continue
		}
		for metaKey := range metaValues {
			if metaName != "" && metaKey.Name() != metaName {
				continue
			}
			result[dataKey] = append(result[dataKey], metaKey)
		}
	}
	for _, metaKeys := range result {
		sortKeys(metaKeys)
	}
	return result, nil
}

// Get implements DataStore.
func (s *MemoryDataStore) Get(key Key, committed Committed) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.layer(committed)[key]
	return value, ok, nil
}

// Set implements DataStore.
func (s *MemoryDataStore) Set(key Key, value string, committed Committed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layerForWrite(committed)[key] = value
	return nil
}

// Delete implements DataStore.
func (s *MemoryDataStore) Delete(key Key, committed Committed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layer(committed), key)
	return nil
}

// GetMetadataRaw implements DataStore.
func (s *MemoryDataStore) GetMetadataRaw(metaName, dataKey Key) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.metadata[dataKey][metaName]
	return value, ok, nil
}

// SetMetadata implements DataStore.
func (s *MemoryDataStore) SetMetadata(metaName, dataKey Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata[dataKey] == nil {
		s.metadata[dataKey] = make(map[Key]string)
	}
	s.metadata[dataKey][metaName] = value
	return nil
}

// DeleteMetadata implements DataStore.
func (s *MemoryDataStore) DeleteMetadata(metaName, dataKey Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metadata[dataKey], metaName)
	if len(s.metadata[dataKey]) == 0 {
		delete(s.metadata, dataKey)
	}
	return nil
}

// Commit implements DataStore.
func (s *MemoryDataStore) Commit(transaction string) ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writes := s.pending[transaction]
	keys := maps.Keys(writes)
	for key, value := range writes {
		s.live[key] = value
	}
	delete(s.pending, transaction)
	sortKeys(keys)
	return keys, nil
}

// DeletePending implements DataStore.
func (s *MemoryDataStore) DeletePending(transaction string) ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := maps.Keys(s.pending[transaction])
	delete(s.pending, transaction)
	sortKeys(keys)
	return keys, nil
}

// ListTransactions implements DataStore.
func (s *MemoryDataStore) ListTransactions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Keys(s.pending), nil
}
