// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

// Simple test schema for parsing tests
const testSchema = `
#TestConfig: {
	name:        string
	count:       int
	enabled:     bool
	description?: string
}
`

// TestConfig is a simple struct for testing generic parsing
type TestConfig struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Run("valid config parses successfully", func(t *testing.T) {
		data := []byte(`
name: "test"
count: 42
enabled: true
description: "A test config"
`)
		result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.Name != "test" {
			t.Errorf("expected name='test', got %q", result.Value.Name)
		}
		if result.Value.Count != 42 {
			t.Errorf("expected count=42, got %d", result.Value.Count)
		}
		if !result.Value.Enabled {
			t.Error("expected enabled=true")
		}
		if result.Value.Description != "A test config" {
			t.Errorf("expected description='A test config', got %q", result.Value.Description)
		}
	})

	t.Run("optional field can be omitted", func(t *testing.T) {
		data := []byte(`
name: "minimal"
count: 1
enabled: false
`)
		result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.Name != "minimal" {
			t.Errorf("expected name='minimal', got %q", result.Value.Name)
		}
		if result.Value.Description != "" {
			t.Errorf("expected empty description, got %q", result.Value.Description)
		}
	})

	t.Run("invalid type returns error", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "not a number"  // Should be int
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err == nil {
			t.Error("expected error for invalid type")
		}
	})

	t.Run("missing required field returns error", func(t *testing.T) {
		data := []byte(`
name: "test"
// count is missing
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err == nil {
			t.Error("expected error for missing required field")
		}
	})

	t.Run("WithFilename sets filename in errors", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "invalid"
enabled: true
`)
		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithFilename("my-config.cue"),
		)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "my-config.cue") {
			t.Errorf("error should contain filename, got: %v", err)
		}
	})
}

// TestParseConfigType exercises a schema shaped like the keel config file:
// all fields optional, with an enum constraint.
func TestParseConfigType(t *testing.T) {
	configSchema := `
#Config: {
	datastore_path?: string
	migration_dir?:  string
	log_level?: "debug" | "info" | "warn" | "error"
}
`

	type Config struct {
		DataStorePath string `json:"datastore_path,omitempty"`
		MigrationDir  string `json:"migration_dir,omitempty"`
		LogLevel      string `json:"log_level,omitempty"`
	}

	t.Run("full config parses successfully", func(t *testing.T) {
		data := []byte(`
datastore_path: "/var/lib/keel/datastore"
migration_dir: "/var/lib/keel/migrations"
log_level: "debug"
`)
		result, err := ParseAndDecode[Config]([]byte(configSchema), data, "#Config")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.DataStorePath != "/var/lib/keel/datastore" {
			t.Errorf("expected datastore_path='/var/lib/keel/datastore', got %q", result.Value.DataStorePath)
		}
		if result.Value.LogLevel != "debug" {
			t.Errorf("expected log_level='debug', got %q", result.Value.LogLevel)
		}
	})

	t.Run("empty config parses with WithConcrete(false)", func(t *testing.T) {
		data := []byte(`{}`)
		result, err := ParseAndDecode[Config](
			[]byte(configSchema),
			data,
			"#Config",
			WithConcrete(false),
		)
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.DataStorePath != "" {
			t.Errorf("expected empty datastore_path, got %q", result.Value.DataStorePath)
		}
	})

	t.Run("invalid enum value returns error", func(t *testing.T) {
		data := []byte(`
log_level: "verbose"  // Invalid: not a known level
`)
		_, err := ParseAndDecode[Config]([]byte(configSchema), data, "#Config")
		if err == nil {
			t.Error("expected error for invalid enum value")
		}
	})
}

func TestFileSizeLimit(t *testing.T) {
	t.Run("file within limit parses successfully", func(t *testing.T) {
		data := []byte(`
name: "test"
count: 1
enabled: true
`)
		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithMaxFileSize(1024), // 1KB limit
		)
		if err != nil {
			t.Errorf("expected success, got error: %v", err)
		}
	})

	t.Run("file exceeding limit returns error", func(t *testing.T) {
		// Create data larger than the limit
		data := make([]byte, 200)
		for i := range data {
			data[i] = 'a'
		}

		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithMaxFileSize(100), // 100 byte limit
		)
		if err == nil {
			t.Error("expected error for oversized file")
		}
		if !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("error should mention size limit, got: %v", err)
		}
	})

	t.Run("default limit is applied", func(t *testing.T) {
		// Create data well under default limit
		data := []byte(`name: "test"
count: 1
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Errorf("expected success with default limit, got error: %v", err)
		}
	})
}

// Test ParseAndDecodeString convenience function
func TestParseAndDecodeString(t *testing.T) {
	data := []byte(`
name: "test"
count: 42
enabled: true
`)
	result, err := ParseAndDecodeString[TestConfig](testSchema, data, "#TestConfig")
	if err != nil {
		t.Fatalf("ParseAndDecodeString failed: %v", err)
	}

	if result.Value.Name != "test" {
		t.Errorf("expected name='test', got %q", result.Value.Name)
	}
}

// Test that Unified value is accessible
func TestUnifiedValueAccess(t *testing.T) {
	data := []byte(`
name: "test"
count: 42
enabled: true
`)
	result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
	if err != nil {
		t.Fatalf("ParseAndDecode failed: %v", err)
	}

	// Verify we can access the unified value
	if result.Unified.Err() != nil {
		t.Errorf("unified value has error: %v", result.Unified.Err())
	}
}

// TestValidateData exercises validation of Go values that were decoded from a
// non-CUE source, shaped like a defaults tree.
func TestValidateData(t *testing.T) {
	defaultsSchema := []byte(`
#Defaults: {
	settings?: {...}
	metadata?: {...}
	...
}
`)

	t.Run("valid tree passes", func(t *testing.T) {
		tree := map[string]any{
			"settings": map[string]any{
				"motd": "hello",
			},
			"metadata": map[string]any{
				"settings": map[string]any{
					"motd": map[string]any{"affected-services": []any{"motd"}},
				},
			},
		}
		if err := ValidateData(defaultsSchema, tree, "#Defaults"); err != nil {
			t.Errorf("expected success, got error: %v", err)
		}
	})

	t.Run("scalar settings rejected", func(t *testing.T) {
		tree := map[string]any{
			"settings": "not a table",
		}
		err := ValidateData(defaultsSchema, tree, "#Defaults")
		if err == nil {
			t.Error("expected error for scalar settings")
		}
	})

	t.Run("unknown top-level key allowed by open schema", func(t *testing.T) {
		tree := map[string]any{
			"services": map[string]any{"motd": map[string]any{}},
		}
		if err := ValidateData(defaultsSchema, tree, "#Defaults"); err != nil {
			t.Errorf("expected success for open schema, got error: %v", err)
		}
	})

	t.Run("closed schema rejects unknown key", func(t *testing.T) {
		closedSchema := []byte(`
#Strict: {
	name: string
}
`)
		err := ValidateData(closedSchema, map[string]any{"name": "x", "extra": 1}, "#Strict")
		if err == nil {
			t.Error("expected error for unknown key in closed schema")
		}
	})

	t.Run("missing schema definition returns internal error", func(t *testing.T) {
		err := ValidateData(defaultsSchema, map[string]any{}, "#Missing")
		if err == nil {
			t.Fatal("expected error for missing definition")
		}
		if !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("error should name the missing definition, got: %v", err)
		}
	})

	t.Run("filename appears in validation errors", func(t *testing.T) {
		tree := map[string]any{"settings": 42}
		err := ValidateData(defaultsSchema, tree, "#Defaults", WithFilename("defaults.toml"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "defaults.toml") {
			t.Errorf("error should contain filename, got: %v", err)
		}
	})
}
