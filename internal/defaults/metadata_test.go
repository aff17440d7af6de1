// SPDX-License-Identifier: MPL-2.0

package defaults

import (
	"errors"
	"strings"
	"testing"

	"keel/pkg/datastore"
)

func TestExtractMetadata(t *testing.T) {
	tree := map[string]any{
		"settings": map[string]any{
			"motd": map[string]any{
				"affected-services": []any{"motd"},
			},
			"ntp": map[string]any{
				"affected-services": []any{"ntp", "chronyd"},
				"restart-command":   "systemctl restart ntp",
			},
		},
	}

	entries, err := extractMetadata(tree)
	if err != nil {
		t.Fatalf("extractMetadata() error = %v", err)
	}

	want := []MetadataEntry{
		{
			Key:   datastore.MustKey(datastore.KindData, "settings.motd"),
			Name:  datastore.MustKey(datastore.KindMeta, "affected-services"),
			Value: `["motd"]`,
		},
		{
			Key:   datastore.MustKey(datastore.KindData, "settings.ntp"),
			Name:  datastore.MustKey(datastore.KindMeta, "affected-services"),
			Value: `["ntp","chronyd"]`,
		},
		{
			Key:   datastore.MustKey(datastore.KindData, "settings.ntp"),
			Name:  datastore.MustKey(datastore.KindMeta, "restart-command"),
			Value: `"systemctl restart ntp"`,
		},
	}
	if len(entries) != len(want) {
		t.Fatalf("extractMetadata() returned %d entries, want %d: %v", len(entries), len(want), entries)
	}
	for i, entry := range entries {
		if entry != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entry, want[i])
		}
	}
}

func TestExtractMetadataEmpty(t *testing.T) {
	entries, err := extractMetadata(map[string]any{})
	if err != nil {
		t.Fatalf("extractMetadata() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("extractMetadata() = %v, want no entries", entries)
	}
}

func TestExtractMetadataTopLevelLeaf(t *testing.T) {
	tree := map[string]any{
		"affected-services": []any{"motd"},
	}

	_, err := extractMetadata(tree)
	if !errors.Is(err, ErrInvalidDefaults) {
		t.Fatalf("extractMetadata() error = %v, want ErrInvalidDefaults", err)
	}
	if !strings.Contains(err.Error(), "nested under a data key") {
		t.Errorf("extractMetadata() error = %v, want nesting complaint", err)
	}
}

func TestExtractMetadataBadLeafType(t *testing.T) {
	tree := map[string]any{
		"settings": map[string]any{
			"motd": map[string]any{
				"priority": int64(3),
			},
		},
	}

	_, err := extractMetadata(tree)
	invalid, ok := errors.AsType[*InvalidMetadataError](err)
	if !ok {
		t.Fatalf("extractMetadata() error = %v, want *InvalidMetadataError", err)
	}
	if invalid.Path != "settings.motd.priority" {
		t.Errorf("Path = %q, want %q", invalid.Path, "settings.motd.priority")
	}
	if !strings.Contains(invalid.Reason, "integer") {
		t.Errorf("Reason = %q, want mention of the integer value", invalid.Reason)
	}
}

func TestExtractMetadataBadName(t *testing.T) {
	// A quoted TOML key can smuggle a separator into a metadata name; key
	// validation must catch it.
	tree := map[string]any{
		"settings": map[string]any{
			"a.b": "value",
		},
	}

	_, err := extractMetadata(tree)
	if err == nil {
		t.Fatal("extractMetadata() error = nil, want invalid name error")
	}
	if !strings.Contains(err.Error(), "a.b") {
		t.Errorf("extractMetadata() error = %v, want the bad name quoted", err)
	}
}

func TestExtractMetadataBadLocation(t *testing.T) {
	tree := map[string]any{
		"settings": map[string]any{
			"bad segment": map[string]any{
				"affected-services": []any{"x"},
			},
		},
	}

	_, err := extractMetadata(tree)
	if err == nil {
		t.Fatal("extractMetadata() error = nil, want invalid location error")
	}
	if !strings.Contains(err.Error(), "bad metadata location") {
		t.Errorf("extractMetadata() error = %v, want location complaint", err)
	}
}
