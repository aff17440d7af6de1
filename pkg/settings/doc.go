// SPDX-License-Identifier: MPL-2.0

// Package settings translates between typed settings trees and the flat
// dotted-key representation the datastore holds.
//
// ToPairs walks a tree of nested structs and string-keyed maps depth-first,
// extending a dotted prefix at each field or entry, and emits one
// (key, canonical JSON text) pair per leaf. Absent fields (nil pointers)
// emit nothing, so "unset" and "empty" stay distinguishable. FromPairs
// reverses the walk: it groups keys by leading segment and rebuilds the
// tree, decoding each leaf's canonical text into the target field.
//
// The two directions are exact inverses: for any tree T whose leaves
// survive JSON, FromPairs(ToPairs(T)) reproduces T.
package settings
