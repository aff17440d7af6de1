// SPDX-License-Identifier: MPL-2.0

// Package release reads OS identification from os-release files.
//
// storeinit stamps a freshly populated datastore with the version the host is
// running. When no version is passed explicitly, it falls back to the
// VERSION_ID field of /etc/os-release, which this package parses.
package release
