// SPDX-License-Identifier: MPL-2.0

// Package migrator moves a datastore between settings versions by
// running migration unit executables. It discovers units in a migration
// directory, selects and orders the ones between the store's current
// version and the requested one, runs each over a scratch copy of the
// store, and swaps the fully migrated copy into place only after the
// whole chain succeeded. A failure anywhere leaves the live store
// byte-identical to how it started.
package migrator
