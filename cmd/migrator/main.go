// SPDX-License-Identifier: MPL-2.0

// Command migrator moves a keel datastore between OS versions. It
// discovers migration unit executables, orders them into a chain for the
// requested version delta, runs the chain over a scratch copy of the
// store, and atomically swaps the migrated copy into place.
package main

func main() {
	Execute()
}
