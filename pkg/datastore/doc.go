// SPDX-License-Identifier: MPL-2.0

// Package datastore provides the key-value store that holds the host's
// runtime settings.
//
// Values are addressed by dotted keys ("settings.motd") and live in one of
// two committed layers: Live, the externally visible configuration, and any
// number of named Pending transactions, which are isolated overlays of
// uncommitted writes. Committing a transaction merges its keys into Live and
// reports which keys changed so downstream consumers can react.
//
// Each data key can carry metadata entries (for example, which services are
// affected when the key changes). Metadata is addressed by (data key,
// metadata name), lives outside the transaction system, and is inherited
// along the data key's prefixes: metadata set on "settings" applies to
// "settings.motd" unless a more specific entry overrides it.
//
// Two implementations are provided: FilesystemDataStore, which maps keys to
// files under a root directory, and MemoryDataStore, a map-backed store with
// identical semantics for tests and embedding.
package datastore
