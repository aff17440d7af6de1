// SPDX-License-Identifier: MPL-2.0

// Package config handles tool configuration using Viper with CUE as the file format.
//
// Configuration is loaded from /etc/keel/config.cue. All fields are optional;
// missing fields fall back to the built-in defaults, and KEEL_* environment
// variables override both. The package provides type-safe access to the
// datastore location, the migration directory, the defaults file path, and the
// log level shared by the keel binaries.
//
// Configuration validation is performed against a CUE schema (config_schema.cue)
// to ensure type safety and provide clear error messages for invalid
// configurations. Constraints CUE cannot see (absolute paths, values injected
// through the environment) are checked again in Go after decoding.
package config
