// SPDX-License-Identifier: MPL-2.0

// Package defaults populates a datastore from shipped default settings.
//
// Defaults live in TOML: a [settings] table holding the default settings
// tree, a [metadata] table describing per-key metadata, and any other
// top-level tables that are written to the live store as-is. A defaults path
// may also be a directory of TOML fragments merged in lexical filename
// order, so images can overlay variant-specific values on a shared base.
//
// Population is additive by default: keys and metadata pairs that already
// exist are left alone, so re-running storeinit after an update only fills
// in what is new. Settings are staged into the shared launch transaction
// rather than written to Live directly, leaving the first commit cycle to
// apply them.
package defaults
