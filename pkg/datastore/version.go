// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VersionMarkerFile is the file at the datastore root that records the
// schema version of the data inside. It sits beside the live and pending
// trees and is never visible as a key.
const VersionMarkerFile = "version"

// ReadVersionMarker returns the schema version stamped on the datastore at
// root. The marker holds a single version string, e.g. "v1.2.0".
func ReadVersionMarker(root string) (string, error) {
	path := filepath.Join(root, VersionMarkerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read version marker %s: %w", path, err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", &CorruptionError{Msg: "empty version marker", Path: path}
	}
	return version, nil
}

// WriteVersionMarker stamps the schema version on the datastore at root.
func WriteVersionMarker(root, version string) error {
	path := filepath.Join(root, VersionMarkerFile)
	if err := os.WriteFile(path, []byte(version+"\n"), fileMode); err != nil {
		return fmt.Errorf("failed to write version marker %s: %w", path, err)
	}
	return nil
}
