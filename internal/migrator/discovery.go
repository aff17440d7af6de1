// SPDX-License-Identifier: MPL-2.0

package migrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/log"
)

// Unit is one discovered migration executable.
type Unit struct {
	// Path is the absolute path to the executable.
	Path string
	// Version is the canonical semantic version the unit belongs to,
	// with the leading "v" golang.org/x/mod/semver expects.
	Version string
	// Name distinguishes units that share a version.
	Name string
}

// unitNamePattern matches migration unit filenames:
// migrate_v?<major>.<minor>.<patch>[-pre][+build]_<name>. The "v" is
// optional so units built from either naming habit are found.
var unitNamePattern = regexp.MustCompile(
	`^migrate_v?([0-9]+\.[0-9]+\.[0-9]+(?:-[0-9a-zA-Z.-]+)?(?:\+[0-9a-zA-Z.-]+)?)_([a-zA-Z0-9-]+)$`)

// Discover scans one directory for migration unit executables. Files
// whose names do not match the unit pattern, directories, and files
// without an execute bit are skipped silently; an empty or missing
// directory yields an empty list. Units come back in filename order.
func Discover(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Debug("migration directory does not exist", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migration directory: %w", err)
	}

	var units []Unit
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := unitNamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			log.Debug("skipping non-unit file", "file", entry.Name())
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", path, err)
		}
		if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			log.Debug("skipping non-executable unit", "file", entry.Name())
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		units = append(units, Unit{
			Path:    abs,
			Version: "v" + matches[1],
			Name:    matches[2],
		})
	}
	return units, nil
}
