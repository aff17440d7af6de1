// SPDX-License-Identifier: MPL-2.0

// Command storeinit creates a keel datastore and populates it with
// defaults. It decodes a defaults TOML file or fragment directory,
// checks the tree's shape, stages default settings into the shared
// launch transaction, writes metadata and other tables to the live
// store, and stamps the datastore version. Values already in the store
// survive a re-run unless --overwrite is given.
package main

func main() {
	Execute()
}
