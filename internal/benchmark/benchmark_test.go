// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"keel/internal/defaults"
	"keel/pkg/datastore"
	"keel/pkg/settings"
)

// sampleDefaults is a representative defaults.toml for benchmarking the
// storeinit pipeline. It mixes scalar, list, and nested-table settings with
// metadata and a non-settings table to exercise every branch of Populate.
const sampleDefaults = `
[settings.host]
hostname = "localhost"
motd = "welcome to keel"

[settings.ntp]
time-servers = ["0.pool.ntp.org", "1.pool.ntp.org", "2.pool.ntp.org"]

[settings.kernel.sysctl]
"vm.max_map_count" = "262144"
"net.ipv4.ip_forward" = "1"

[settings.updates]
seed = 1024
ignore-waves = false

[metadata.settings.host.motd]
affected-services = ["motd"]

[metadata.settings.ntp]
affected-services = ["ntp", "chronyd"]

[metadata.settings.updates.seed]
setting-generator = "shuffle seed"

[services.ntp]
restart-commands = ["systemctl restart chronyd"]

[configuration-files.ntp-conf]
path = "/etc/chrony.conf"
template-path = "/usr/share/templates/chrony-conf"
`

type (
	// hostSettings models the settings slice an API consumer would decode.
	hostSettings struct {
		Host    hostInfo       `toml:"host"`
		NTP     ntpSettings    `toml:"ntp"`
		Kernel  kernelSettings `toml:"kernel"`
		Updates updateSettings `toml:"updates"`
	}

	hostInfo struct {
		Hostname string `toml:"hostname"`
		MOTD     string `toml:"motd"`
	}

	ntpSettings struct {
		TimeServers []string `toml:"time-servers"`
	}

	kernelSettings struct {
		Sysctl map[string]string `toml:"sysctl"`
	}

	updateSettings struct {
		Seed        int  `toml:"seed"`
		IgnoreWaves bool `toml:"ignore-waves"`
	}
)

func sampleTree() hostSettings {
	return hostSettings{
		Host: hostInfo{Hostname: "localhost", MOTD: "welcome to keel"},
		NTP: ntpSettings{
			TimeServers: []string{"0.pool.ntp.org", "1.pool.ntp.org", "2.pool.ntp.org"},
		},
		Kernel: kernelSettings{
			Sysctl: map[string]string{
				"vm.max_map_count":    "262144",
				"net.ipv4.ip_forward": "1",
			},
		},
		Updates: updateSettings{Seed: 1024, IgnoreWaves: false},
	}
}

// BenchmarkFlatten benchmarks flattening a typed settings tree into
// datastore pairs. This exercises the hot path in pkg/settings/serialize.go.
func BenchmarkFlatten(b *testing.B) {
	tree := sampleTree()

	b.ResetTimer()
	for b.Loop() {
		if _, err := settings.ToPairsWithPrefix("settings", tree); err != nil {
			b.Fatalf("ToPairsWithPrefix failed: %v", err)
		}
	}
}

// BenchmarkExpand benchmarks rebuilding a typed settings tree from stored
// pairs. This exercises the hot path in pkg/settings/deserialize.go.
func BenchmarkExpand(b *testing.B) {
	pairs, err := settings.ToPairsWithPrefix("settings", sampleTree())
	if err != nil {
		b.Fatalf("ToPairsWithPrefix failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		var tree hostSettings
		if err := settings.FromPairsWithPrefix("settings", pairs, &tree); err != nil {
			b.Fatalf("FromPairsWithPrefix failed: %v", err)
		}
	}
}

// BenchmarkDefaultsLoad benchmarks TOML decoding plus CUE shape validation
// of a defaults file, the storeinit parse path in internal/defaults.
func BenchmarkDefaultsLoad(b *testing.B) {
	path := filepath.Join(b.TempDir(), "defaults.toml")
	if err := os.WriteFile(path, []byte(sampleDefaults), 0o644); err != nil {
		b.Fatalf("writing fixture: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		tree, err := defaults.Load(path)
		if err != nil {
			b.Fatalf("Load failed: %v", err)
		}
		if err := defaults.Validate(tree, path); err != nil {
			b.Fatalf("Validate failed: %v", err)
		}
	}
}

// BenchmarkPopulate benchmarks populating a store from a decoded defaults
// tree, using the memory store to isolate Populate from disk I/O.
func BenchmarkPopulate(b *testing.B) {
	path := filepath.Join(b.TempDir(), "defaults.toml")
	if err := os.WriteFile(path, []byte(sampleDefaults), 0o644); err != nil {
		b.Fatalf("writing fixture: %v", err)
	}
	tree, err := defaults.Load(path)
	if err != nil {
		b.Fatalf("Load failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		ds := datastore.NewMemory()
		if _, err := defaults.Populate(ds, tree, defaults.Options{}); err != nil {
			b.Fatalf("Populate failed: %v", err)
		}
	}
}

// BenchmarkFilesystemCommit benchmarks staging a batch of keys in a pending
// transaction and committing them into the live tree, the write-heavy path
// in pkg/datastore/filesystem.go.
func BenchmarkFilesystemCommit(b *testing.B) {
	ds, err := datastore.New(filepath.Join(b.TempDir(), "store"))
	if err != nil {
		b.Fatalf("creating store: %v", err)
	}
	pairs, err := settings.ToPairsWithPrefix("settings", sampleTree())
	if err != nil {
		b.Fatalf("ToPairsWithPrefix failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; b.Loop(); i++ {
		tx := datastore.Pending(fmt.Sprintf("bench-%d", i))
		if err := datastore.SetKeys(ds, pairs, tx); err != nil {
			b.Fatalf("SetKeys failed: %v", err)
		}
		if _, err := ds.Commit(fmt.Sprintf("bench-%d", i)); err != nil {
			b.Fatalf("Commit failed: %v", err)
		}
	}
}
