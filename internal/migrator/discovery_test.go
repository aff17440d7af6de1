// SPDX-License-Identifier: MPL-2.0

package migrator

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "migrate_v1.0.0_first-thing", 0o755)
	writeFile(t, dir, "migrate_1.1.0_no-prefix", 0o755)
	writeFile(t, dir, "migrate_v1.2.0-alpha.1_prerelease", 0o755)
	writeFile(t, dir, "migrate_v1.0.0_not-executable", 0o644)
	writeFile(t, dir, "README.md", 0o755)
	writeFile(t, dir, "migrate_v1.0_short-version", 0o755)
	writeFile(t, dir, "migrate_v1.0.0_bad.name", 0o755)
	if err := os.Mkdir(filepath.Join(dir, "migrate_v9.9.9_a-directory"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	units, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := make(map[string]string, len(units))
	for _, u := range units {
		got[u.Name] = u.Version
		if !filepath.IsAbs(u.Path) {
			t.Errorf("unit %s has relative path %q", u.Name, u.Path)
		}
	}
	want := map[string]string{
		"first-thing": "v1.0.0",
		"no-prefix":   "v1.1.0",
		"prerelease":  "v1.2.0-alpha.1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %#v, want %#v", got, want)
	}
}

func TestDiscover_MissingDirectory(t *testing.T) {
	units, err := Discover(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(units) != 0 {
		t.Errorf("Discover() = %v, want empty", units)
	}
}
