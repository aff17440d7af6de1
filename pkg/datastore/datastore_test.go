// SPDX-License-Identifier: MPL-2.0

package datastore

import (
	"errors"
	"sort"
	"testing"
)

// storeImpls lists every DataStore implementation; the semantic tests below
// run against each so the two stores cannot drift apart.
var storeImpls = []struct {
	name     string
	newStore func(t *testing.T) DataStore
}{
	{"filesystem", func(t *testing.T) DataStore {
		t.Helper()
		ds, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New() returned error: %v", err)
		}
		return ds
	}},
	{"memory", func(t *testing.T) DataStore {
		t.Helper()
		return NewMemory()
	}},
}

func TestDataStore_SetGetDelete(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			key := MustKey(KindData, "settings.motd")

			if _, ok, err := ds.Get(key, Live()); err != nil || ok {
				t.Fatalf("Get on empty store = (%v, %v), want absent without error", ok, err)
			}

			if err := ds.Set(key, `"hello"`, Live()); err != nil {
				t.Fatalf("Set returned error: %v", err)
			}

			value, ok, err := ds.Get(key, Live())
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if !ok || value != `"hello"` {
				t.Errorf("Get = (%q, %v), want (%q, true)", value, ok, `"hello"`)
			}

			populated, err := ds.KeyPopulated(key, Live())
			if err != nil {
				t.Fatalf("KeyPopulated returned error: %v", err)
			}
			if !populated {
				t.Error("KeyPopulated = false after Set")
			}

			if err := ds.Delete(key, Live()); err != nil {
				t.Fatalf("Delete returned error: %v", err)
			}
			if _, ok, _ := ds.Get(key, Live()); ok {
				t.Error("key still populated after Delete")
			}

			// Deleting an absent key is not an error.
			if err := ds.Delete(key, Live()); err != nil {
				t.Errorf("Delete of absent key returned error: %v", err)
			}
		})
	}
}

func TestDataStore_LayerIsolation(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			key := MustKey(KindData, "settings.motd")

			if err := ds.Set(key, `"live"`, Live()); err != nil {
				t.Fatalf("Set live returned error: %v", err)
			}
			if err := ds.Set(key, `"tx-a"`, Pending("a")); err != nil {
				t.Fatalf("Set pending returned error: %v", err)
			}
			if err := ds.Set(key, `"tx-b"`, Pending("b")); err != nil {
				t.Fatalf("Set pending returned error: %v", err)
			}

			for _, tt := range []struct {
				layer Committed
				want  string
			}{
				{Live(), `"live"`},
				{Pending("a"), `"tx-a"`},
				{Pending("b"), `"tx-b"`},
			} {
				value, ok, err := ds.Get(key, tt.layer)
				if err != nil {
					t.Fatalf("Get(%v) returned error: %v", tt.layer, err)
				}
				if !ok || value != tt.want {
					t.Errorf("Get(%v) = (%q, %v), want (%q, true)", tt.layer, value, ok, tt.want)
				}
			}

			// An unwritten transaction reads as empty, not as an error.
			if _, ok, err := ds.Get(key, Pending("zzz")); err != nil || ok {
				t.Errorf("Get on unwritten transaction = (%v, %v), want absent without error", ok, err)
			}
		})
	}
}

func TestDataStore_ListKeysPrefix(t *testing.T) {
	populate := map[string]string{
		"settings":           `"root"`,
		"settings.motd":      `"m"`,
		"settings.motd-x":    `"mx"`,
		"settings.ntp.0":     `"n0"`,
		"services.ntp":       `"s"`,
		"settings-other.one": `"o"`,
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"services.ntp", "settings", "settings-other.one", "settings.motd", "settings.motd-x", "settings.ntp.0"}},
		{"settings", []string{"settings", "settings.motd", "settings.motd-x", "settings.ntp.0"}},
		{"settings.motd", []string{"settings.motd"}},
		{"settings.ntp", []string{"settings.ntp.0"}},
		{"services.dns", nil},
	}

	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			for name, value := range populate {
				if err := ds.Set(MustKey(KindData, name), value, Live()); err != nil {
					t.Fatalf("Set(%s) returned error: %v", name, err)
				}
			}

			for _, tt := range tests {
				keys, err := ds.ListKeys(tt.prefix, Live())
				if err != nil {
					t.Fatalf("ListKeys(%q) returned error: %v", tt.prefix, err)
				}
				got := keyNames(keys)
				if !equalStrings(got, tt.want) {
					t.Errorf("ListKeys(%q) = %v, want %v", tt.prefix, got, tt.want)
				}
				if !sort.StringsAreSorted(got) {
					t.Errorf("ListKeys(%q) not sorted: %v", tt.prefix, got)
				}
			}

			// A malformed prefix is rejected before any listing happens.
			if _, err := ds.ListKeys("settings..motd", Live()); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ListKeys with malformed prefix: error = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestDataStore_CommitMergesAndIsolates(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			motd := MustKey(KindData, "settings.motd")
			ntp := MustKey(KindData, "settings.ntp.servers")
			other := MustKey(KindData, "settings.other")

			if err := ds.Set(motd, `"old"`, Live()); err != nil {
				t.Fatal(err)
			}
			if err := ds.Set(motd, `"new"`, Pending("tx1")); err != nil {
				t.Fatal(err)
			}
			if err := ds.Set(ntp, `["a","b"]`, Pending("tx1")); err != nil {
				t.Fatal(err)
			}
			if err := ds.Set(other, `"untouched"`, Pending("tx2")); err != nil {
				t.Fatal(err)
			}

			changed, err := ds.Commit("tx1")
			if err != nil {
				t.Fatalf("Commit returned error: %v", err)
			}
			if got := keyNames(changed); !equalStrings(got, []string{"settings.motd", "settings.ntp.servers"}) {
				t.Errorf("Commit changed keys = %v, want settings.motd + settings.ntp.servers", got)
			}

			// Live now sees the committed values.
			if value, _, _ := ds.Get(motd, Live()); value != `"new"` {
				t.Errorf("Get(motd) after commit = %q, want %q", value, `"new"`)
			}
			if value, _, _ := ds.Get(ntp, Live()); value != `["a","b"]` {
				t.Errorf("Get(ntp) after commit = %q, want %q", value, `["a","b"]`)
			}

			// tx1 is gone; tx2 is untouched.
			txs, err := ds.ListTransactions()
			if err != nil {
				t.Fatalf("ListTransactions returned error: %v", err)
			}
			if len(txs) != 1 || txs[0] != "tx2" {
				t.Errorf("ListTransactions = %v, want [tx2]", txs)
			}
			if _, ok, _ := ds.Get(other, Live()); ok {
				t.Error("uncommitted tx2 key leaked into Live")
			}
		})
	}
}

func TestDataStore_CommitEmptyTransaction(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			key := MustKey(KindData, "settings.motd")
			if err := ds.Set(key, `"keep"`, Live()); err != nil {
				t.Fatal(err)
			}

			changed, err := ds.Commit("never-written")
			if err != nil {
				t.Fatalf("Commit of empty transaction returned error: %v", err)
			}
			if len(changed) != 0 {
				t.Errorf("Commit of empty transaction changed %v, want nothing", keyNames(changed))
			}
			if value, _, _ := ds.Get(key, Live()); value != `"keep"` {
				t.Errorf("Live key disturbed by empty commit: %q", value)
			}
		})
	}
}

func TestDataStore_DeletePending(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			key := MustKey(KindData, "settings.motd")
			if err := ds.Set(key, `"discard"`, Pending("tx")); err != nil {
				t.Fatal(err)
			}

			dropped, err := ds.DeletePending("tx")
			if err != nil {
				t.Fatalf("DeletePending returned error: %v", err)
			}
			if got := keyNames(dropped); !equalStrings(got, []string{"settings.motd"}) {
				t.Errorf("DeletePending = %v, want [settings.motd]", got)
			}

			if _, ok, _ := ds.Get(key, Live()); ok {
				t.Error("discarded key appeared in Live")
			}
			txs, _ := ds.ListTransactions()
			if len(txs) != 0 {
				t.Errorf("ListTransactions after discard = %v, want none", txs)
			}
		})
	}
}

func TestDataStore_MetadataSeparateNamespace(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			dataKey := MustKey(KindData, "settings.motd")
			metaKey := MustKey(KindMeta, "affected-services")

			if err := ds.Set(dataKey, `"hello"`, Live()); err != nil {
				t.Fatal(err)
			}
			if err := ds.SetMetadata(metaKey, dataKey, `["motd-service"]`); err != nil {
				t.Fatalf("SetMetadata returned error: %v", err)
			}

			// Metadata never shows up in a data listing.
			keys, err := ds.ListKeys("", Live())
			if err != nil {
				t.Fatal(err)
			}
			if got := keyNames(keys); !equalStrings(got, []string{"settings.motd"}) {
				t.Errorf("ListKeys = %v, want data keys only", got)
			}

			value, ok, err := ds.GetMetadataRaw(metaKey, dataKey)
			if err != nil {
				t.Fatalf("GetMetadataRaw returned error: %v", err)
			}
			if !ok || value != `["motd-service"]` {
				t.Errorf("GetMetadataRaw = (%q, %v), want the stored value", value, ok)
			}

			listed, err := ds.ListMetadata("", "")
			if err != nil {
				t.Fatalf("ListMetadata returned error: %v", err)
			}
			if len(listed) != 1 || len(listed[dataKey]) != 1 || listed[dataKey][0] != metaKey {
				t.Errorf("ListMetadata = %v, want %v -> [%v]", listed, dataKey, metaKey)
			}

			if err := ds.DeleteMetadata(metaKey, dataKey); err != nil {
				t.Fatalf("DeleteMetadata returned error: %v", err)
			}
			if _, ok, _ := ds.GetMetadataRaw(metaKey, dataKey); ok {
				t.Error("metadata still present after DeleteMetadata")
			}
		})
	}
}

func TestGetMetadata_Inheritance(t *testing.T) {
	for _, impl := range storeImpls {
		t.Run(impl.name, func(t *testing.T) {
			ds := impl.newStore(t)
			meta := MustKey(KindMeta, "affected-services")

			if err := ds.SetMetadata(meta, MustKey(KindData, "settings"), `["base"]`); err != nil {
				t.Fatal(err)
			}
			if err := ds.SetMetadata(meta, MustKey(KindData, "settings.ntp"), `["ntp"]`); err != nil {
				t.Fatal(err)
			}

			tests := []struct {
				dataKey string
				want    string
				found   bool
			}{
				// The deepest populated prefix wins.
				{"settings.ntp.servers", `["ntp"]`, true},
				{"settings.ntp", `["ntp"]`, true},
				{"settings.motd", `["base"]`, true},
				{"settings", `["base"]`, true},
				{"services.ntp", "", false},
			}

			for _, tt := range tests {
				value, found, err := GetMetadata(ds, meta, MustKey(KindData, tt.dataKey))
				if err != nil {
					t.Fatalf("GetMetadata(%s) returned error: %v", tt.dataKey, err)
				}
				if found != tt.found || value != tt.want {
					t.Errorf("GetMetadata(%s) = (%q, %v), want (%q, %v)", tt.dataKey, value, found, tt.want, tt.found)
				}
			}

			// The raw accessor sees only exact entries.
			if _, found, _ := ds.GetMetadataRaw(meta, MustKey(KindData, "settings.ntp.servers")); found {
				t.Error("GetMetadataRaw found inherited metadata")
			}
		})
	}
}

func TestGetPrefix(t *testing.T) {
	ds := NewMemory()
	for name, value := range map[string]string{
		"settings.motd":    `"m"`,
		"settings.ntp.0":   `"n"`,
		"services.ntp.cfg": `"s"`,
	} {
		if err := ds.Set(MustKey(KindData, name), value, Live()); err != nil {
			t.Fatal(err)
		}
	}

	got, err := GetPrefix(ds, "settings", Live())
	if err != nil {
		t.Fatalf("GetPrefix returned error: %v", err)
	}
	want := map[string]string{
		"settings.motd":  `"m"`,
		"settings.ntp.0": `"n"`,
	}
	if len(got) != len(want) {
		t.Fatalf("GetPrefix returned %d keys, want %d", len(got), len(want))
	}
	for key, value := range got {
		if want[key.Name()] != value {
			t.Errorf("GetPrefix[%s] = %q, want %q", key.Name(), value, want[key.Name()])
		}
	}
}

func TestGetMetadataPrefix(t *testing.T) {
	ds := NewMemory()
	affected := MustKey(KindMeta, "affected-services")
	setting := MustKey(KindMeta, "setting-generator")
	motd := MustKey(KindData, "settings.motd")
	ntp := MustKey(KindData, "settings.ntp")

	if err := ds.SetMetadata(affected, motd, `["motd"]`); err != nil {
		t.Fatal(err)
	}
	if err := ds.SetMetadata(setting, motd, `"motd-gen"`); err != nil {
		t.Fatal(err)
	}
	if err := ds.SetMetadata(affected, ntp, `["chronyd"]`); err != nil {
		t.Fatal(err)
	}

	all, err := GetMetadataPrefix(ds, "settings", "")
	if err != nil {
		t.Fatalf("GetMetadataPrefix returned error: %v", err)
	}
	if len(all) != 2 || len(all[motd]) != 2 || len(all[ntp]) != 1 {
		t.Errorf("GetMetadataPrefix(all) = %v, want 2 keys for motd, 1 for ntp", all)
	}

	only, err := GetMetadataPrefix(ds, "settings", "affected-services")
	if err != nil {
		t.Fatalf("GetMetadataPrefix(filtered) returned error: %v", err)
	}
	if len(only[motd]) != 1 || only[motd][affected] != `["motd"]` {
		t.Errorf("GetMetadataPrefix(filtered) = %v, want only affected-services", only)
	}
}

func TestSetKeysUnsetKeys(t *testing.T) {
	ds := NewMemory()
	pairs := map[Key]string{
		MustKey(KindData, "settings.a"): `1`,
		MustKey(KindData, "settings.b"): `2`,
	}
	if err := SetKeys(ds, pairs, Live()); err != nil {
		t.Fatalf("SetKeys returned error: %v", err)
	}
	keys, _ := ds.ListKeys("", Live())
	if got := keyNames(keys); !equalStrings(got, []string{"settings.a", "settings.b"}) {
		t.Errorf("after SetKeys, keys = %v", got)
	}

	if err := UnsetKeys(ds, []Key{MustKey(KindData, "settings.a")}, Live()); err != nil {
		t.Fatalf("UnsetKeys returned error: %v", err)
	}
	keys, _ = ds.ListKeys("", Live())
	if got := keyNames(keys); !equalStrings(got, []string{"settings.b"}) {
		t.Errorf("after UnsetKeys, keys = %v", got)
	}
}

func keyNames(keys []Key) []string {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = key.Name()
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
