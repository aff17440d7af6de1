// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride allows tests to override the config directory.
// This is necessary because the default /etc/keel is neither writable nor
// desirable to touch from a test process.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
// This is primarily intended for testing to redirect lookups away from the
// fixed /etc/keel directory.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
