// SPDX-License-Identifier: MPL-2.0

// Package migrate is the framework migration units are built from. A unit
// is a standalone executable that transforms a datastore snapshot between
// two adjacent settings layouts; it sees the store as untyped dotted keys
// and decoded values, never as the typed settings tree, so old binaries
// keep working no matter how the tree changes around them.
//
// A unit's main is one call: migrate.Run with a Migration implementation,
// usually one of the combinators in this package. The helper parses the
// standard unit command line, loads the source store layer by layer (Live
// first, then each pending transaction), applies the migration in the
// requested direction, and writes the result to the target store.
//
// Every Migration must honor two rules: keys it does not recognize pass
// through untouched, and Backward undoes what Forward did, so that a
// downgrade followed by an upgrade is lossless.
package migrate
