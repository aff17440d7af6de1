// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	liveDir    = "live"
	pendingDir = "pending"

	dirMode  = 0o755
	fileMode = 0o644
)

// FilesystemDataStore maps keys to files under a root directory. The Live
// layer occupies <root>/live and each pending transaction occupies
// <root>/pending/<name>; a data key "a.b.c" becomes the file path "a/b/c"
// inside its layer, and metadata "m" of that key becomes the sibling file
// "a/b/c.m". Segments and transaction names are percent-encoded on disk, so
// the dot separating a data file name from a metadata name stays unambiguous.
type FilesystemDataStore struct {
	root string

	// commitMu serializes Commit calls; commit is the only operation that
	// merges into Live and must not interleave with another commit.
	commitMu sync.Mutex
}

var _ DataStore = (*FilesystemDataStore)(nil)

// New opens the datastore rooted at the given directory, creating the root
// and the Live tree if they do not exist.
func New(root string) (*FilesystemDataStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve datastore root %q: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Join(abs, liveDir), dirMode); err != nil {
		return nil, fmt.Errorf("failed to create datastore at %s: %w", abs, err)
	}
	return &FilesystemDataStore{root: abs}, nil
}

// Root returns the absolute path of the datastore root directory.
func (s *FilesystemDataStore) Root() string { return s.root }

// layerPath returns the directory holding the given layer's tree.
func (s *FilesystemDataStore) layerPath(committed Committed) (string, error) {
	if tx, ok := committed.Transaction(); ok {
		if tx == "" {
			return "", fmt.Errorf("transaction name must not be empty")
		}
		return filepath.Join(s.root, pendingDir, encodePathComponent(tx)), nil
	}
	return filepath.Join(s.root, liveDir), nil
}

// dataPath returns the file path holding the data key's value in the layer.
func (s *FilesystemDataStore) dataPath(key Key, committed Committed) (string, error) {
	layer, err := s.layerPath(committed)
	if err != nil {
		return "", err
	}
	parts := key.Segments()
	encoded := make([]string, len(parts))
	for i, part := range parts {
		encoded[i] = encodePathComponent(part)
	}
	path := filepath.Join(layer, filepath.Join(encoded...))
	if err := s.guardPath(key.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// metadataPath returns the file path holding a metadata value. Metadata
// lives only on the Live layer, as a dot-suffixed sibling of the data file.
func (s *FilesystemDataStore) metadataPath(metaName, dataKey Key) (string, error) {
	dataFile, err := s.dataPath(dataKey, Live())
	if err != nil {
		return "", err
	}
	path := dataFile + Separator + encodePathComponent(metaName.Name())
	if err := s.guardPath(dataKey.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// guardPath rejects any resolved path that escapes the datastore root.
// Validated keys cannot produce one; this is the last line of defense.
func (s *FilesystemDataStore) guardPath(keyName, path string) error {
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return &PathTraversalError{Name: keyName, Path: path}
	}
	return nil
}

// KeyPopulated implements DataStore.
func (s *FilesystemDataStore) KeyPopulated(key Key, committed Committed) (bool, error) {
	path, err := s.dataPath(key, committed)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// ListKeys implements DataStore.
func (s *FilesystemDataStore) ListKeys(prefix string, committed Committed) ([]Key, error) {
	if err := checkListPrefix(prefix); err != nil {
		return nil, err
	}
	entries, err := s.listEntries(committed)
	if err != nil {
		return nil, err
	}
	var keys []Key
	for _, entry := range entries {
		if !entry.metaKey.IsZero() {
			continue
		}
		if entry.dataKey.WithinPrefix(prefix) {
			keys = append(keys, entry.dataKey)
		}
	}
	sortKeys(keys)
	return keys, nil
}

// ListMetadata implements DataStore.
func (s *FilesystemDataStore) ListMetadata(prefix string, metaName string) (map[Key][]Key, error) {
	if err := checkListPrefix(prefix); err != nil {
		return nil, err
	}
	entries, err := s.listEntries(Live())
	if err != nil {
		return nil, err
	}
	result := make(map[Key][]Key)
	for _, entry := range entries {
		if entry.metaKey.IsZero() {
			continue
		}
		if metaName != "" && entry.metaKey.Name() != metaName {
			continue
		}
		if entry.dataKey.WithinPrefix(prefix) {
			result[entry.dataKey] = append(result[entry.dataKey], entry.metaKey)
		}
	}
	for _, metaKeys := range result {
		sortKeys(metaKeys)
	}
	return result, nil
}

// Get implements DataStore.
func (s *FilesystemDataStore) Get(key Key, committed Committed) (string, bool, error) {
	path, err := s.dataPath(key, committed)
	if err != nil {
		return "", false, err
	}
	return readValue(path)
}

// Set implements DataStore.
func (s *FilesystemDataStore) Set(key Key, value string, committed Committed) error {
	path, err := s.dataPath(key, committed)
	if err != nil {
		return err
	}
	return writeValue(path, value)
}

// Delete implements DataStore.
func (s *FilesystemDataStore) Delete(key Key, committed Committed) error {
	path, err := s.dataPath(key, committed)
	if err != nil {
		return err
	}
	return removeValue(path)
}

// GetMetadataRaw implements DataStore.
func (s *FilesystemDataStore) GetMetadataRaw(metaName, dataKey Key) (string, bool, error) {
	path, err := s.metadataPath(metaName, dataKey)
	if err != nil {
		return "", false, err
	}
	return readValue(path)
}

// SetMetadata implements DataStore.
func (s *FilesystemDataStore) SetMetadata(metaName, dataKey Key, value string) error {
	path, err := s.metadataPath(metaName, dataKey)
	if err != nil {
		return err
	}
	return writeValue(path, value)
}

// DeleteMetadata implements DataStore.
func (s *FilesystemDataStore) DeleteMetadata(metaName, dataKey Key) error {
	path, err := s.metadataPath(metaName, dataKey)
	if err != nil {
		return err
	}
	return removeValue(path)
}

// Commit implements DataStore. It reads the whole transaction into memory
// before writing anything to Live, so an inconsistent overlay fails the
// commit without changing a single Live key.
func (s *FilesystemDataStore) Commit(transaction string) ([]Key, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	pending := Pending(transaction)
	layer, err := s.layerPath(pending)
	if err != nil {
		return nil, err
	}

	entries, err := s.listEntries(pending)
	if err != nil {
		return nil, err
	}

	values := make(map[Key]string, len(entries))
	for _, entry := range entries {
		// Metadata lives only on Live; a metadata file inside a pending
		// tree cannot have come from this store.
		if !entry.metaKey.IsZero() {
			return nil, &CorruptionError{Msg: "metadata file in pending transaction", Key: entry.dataKey.Name(), Path: entry.path}
		}
		value, ok, err := readValue(entry.path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CorruptionError{Msg: "listed key not present", Key: entry.dataKey.Name(), Path: entry.path}
		}
		values[entry.dataKey] = value
	}

	keys := make([]Key, 0, len(values))
	for key, value := range values {
		if err := s.Set(key, value, Live()); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if len(entries) > 0 || dirExists(layer) {
		if err := os.RemoveAll(layer); err != nil {
			return nil, fmt.Errorf("failed to remove committed transaction at %s: %w", layer, err)
		}
	}

	sortKeys(keys)
	return keys, nil
}

// DeletePending implements DataStore.
func (s *FilesystemDataStore) DeletePending(transaction string) ([]Key, error) {
	pending := Pending(transaction)
	layer, err := s.layerPath(pending)
	if err != nil {
		return nil, err
	}
	entries, err := s.listEntries(pending)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.dataKey)
	}
	if err := os.RemoveAll(layer); err != nil {
		return nil, fmt.Errorf("failed to remove transaction at %s: %w", layer, err)
	}
	sortKeys(keys)
	return keys, nil
}

// ListTransactions implements DataStore.
func (s *FilesystemDataStore) ListTransactions() ([]string, error) {
	dir := filepath.Join(s.root, pendingDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in %s: %w", dir, err)
	}
	var transactions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, err := decodePathComponent(entry.Name())
		if err != nil {
			return nil, &CorruptionError{Msg: "undecodable transaction directory", Path: filepath.Join(dir, entry.Name())}
		}
		transactions = append(transactions, name)
	}
	return transactions, nil
}

type fsEntry struct {
	dataKey Key
	metaKey Key // zero for data entries
	path    string
}

// listEntries walks one layer's tree and decodes every file into a data or
// metadata entry. A missing Live tree is corruption; a missing pending tree
// is just an empty transaction.
func (s *FilesystemDataStore) listEntries(committed Committed) ([]fsEntry, error) {
	layer, err := s.layerPath(committed)
	if err != nil {
		return nil, err
	}
	if !dirExists(layer) {
		if committed.IsPending() {
			return nil, nil
		}
		return nil, &CorruptionError{Msg: "live tree missing", Path: layer}
	}

	var entries []fsEntry
	walk := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("failed to walk %s: %w", path, walkErr)
		}
		if d.IsDir() {
			return nil
		}
		entry, err := s.decodeEntry(layer, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	}
	if err := filepath.WalkDir(layer, walk); err != nil {
		return nil, err
	}
	return entries, nil
}

// decodeEntry turns one stored file path back into its key. The file base
// name carries an optional ".<metadata>" suffix; everything else is an
// encoded data key segment.
func (s *FilesystemDataStore) decodeEntry(layer, path string) (fsEntry, error) {
	rel, err := filepath.Rel(layer, path)
	if err != nil {
		return fsEntry{}, fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	parts := strings.Split(rel, string(filepath.Separator))

	metaName := ""
	base := parts[len(parts)-1]
	if i := strings.Index(base, Separator); i >= 0 {
		parts[len(parts)-1] = base[:i]
		metaName = base[i+1:]
	}

	segments := make([]string, len(parts))
	for i, part := range parts {
		segment, err := decodePathComponent(part)
		if err != nil {
			return fsEntry{}, &CorruptionError{Msg: "undecodable path component", Path: path}
		}
		segments[i] = segment
	}

	dataKey, err := KeyFromSegments(KindData, segments)
	if err != nil {
		return fsEntry{}, &CorruptionError{Msg: "stored file does not form a valid key", Path: path}
	}

	entry := fsEntry{dataKey: dataKey, path: path}
	if metaName != "" {
		decoded, err := decodePathComponent(metaName)
		if err != nil {
			return fsEntry{}, &CorruptionError{Msg: "undecodable metadata suffix", Path: path}
		}
		metaKey, err := NewKey(KindMeta, decoded)
		if err != nil {
			return fsEntry{}, &CorruptionError{Msg: "stored file does not form a valid metadata key", Path: path}
		}
		entry.metaKey = metaKey
	}
	return entry, nil
}

// checkListPrefix validates a listing prefix: empty means everything,
// anything else must itself be a well-formed dotted key name.
func checkListPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	_, err := NewKey(KindData, prefix)
	return err
}

// readValue reads a value file; a missing file is an unpopulated key.
func readValue(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}

// writeValue writes a value file, creating parent directories as needed.
func writeValue(path, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(value), fileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// removeValue deletes a value file; deleting an absent file is fine.
func removeValue(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// dirExists reports whether path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// encodePathComponent escapes every byte outside [A-Za-z0-9_-] as %XX so a
// component can never contain a path separator, a relative-path dot, or the
// metadata separator.
func encodePathComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if validSegmentByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// decodePathComponent reverses encodePathComponent.
func decodePathComponent(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape in %q", s)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape in %q", s)
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
