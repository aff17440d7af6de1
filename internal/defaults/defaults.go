// SPDX-License-Identifier: MPL-2.0

package defaults

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"keel/pkg/cueutil"
)

//go:embed defaults_schema.cue
var defaultsSchema []byte

// Load reads a defaults tree from path. A regular file is decoded alone; a
// directory is treated as a set of *.toml fragments merged in lexical
// filename order, later fragments overriding earlier ones.
func Load(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat defaults path %s: %w", path, err)
	}
	if !info.IsDir() {
		return loadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults directory %s: %w", path, err)
	}

	tree := make(map[string]any)
	merged := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		fragment, err := loadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := mergeValues("", tree, fragment); err != nil {
			return nil, fmt.Errorf("failed to merge defaults fragment %s: %w", entry.Name(), err)
		}
		merged++
	}
	if merged == 0 {
		return nil, fmt.Errorf("defaults directory %s contains no .toml fragments", path)
	}
	return tree, nil
}

// Validate checks the decoded tree's top-level shape against the embedded
// defaults schema. filename only labels error messages.
func Validate(tree map[string]any, filename string) error {
	return cueutil.ValidateData(defaultsSchema, tree, "#Defaults", cueutil.WithFilename(filename))
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse defaults file %s: %w", path, err)
	}

	normalizeTree(tree)
	return tree, nil
}

// mergeValues overlays src onto dst. Tables merge key by key; any other
// value replaces the one beneath it, provided both sides agree on the type.
func mergeValues(path string, dst, src map[string]any) error {
	for key, srcVal := range src {
		at := joinPath(path, key)

		dstVal, present := dst[key]
		if !present {
			dst[key] = srcVal
			continue
		}

		dstTable, dstIsTable := dstVal.(map[string]any)
		srcTable, srcIsTable := srcVal.(map[string]any)
		switch {
		case dstIsTable && srcIsTable:
			if err := mergeValues(at, dstTable, srcTable); err != nil {
				return err
			}
		case valueKind(dstVal) != valueKind(srcVal):
			return &MergeConflictError{Path: at, Left: valueKind(dstVal), Right: valueKind(srcVal)}
		default:
			dst[key] = srcVal
		}
	}
	return nil
}

// valueKind names a decoded TOML value's type for conflict messages.
func valueKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "table"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, int:
		return "integer"
	case float64:
		return "float"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// normalizeTree rewrites decoded values the datastore cannot hold. TOML
// datetimes decode into time types and must become their string forms
// before serialization or schema validation.
func normalizeTree(tree map[string]any) {
	for key, value := range tree {
		tree[key] = normalizeValue(value)
	}
}

func normalizeValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		normalizeTree(tv)
		return tv
	case []any:
		for i, elem := range tv {
			tv[i] = normalizeValue(elem)
		}
		return tv
	case time.Time:
		return tv.Format(time.RFC3339)
	case toml.LocalDate:
		return tv.String()
	case toml.LocalDateTime:
		return tv.String()
	case toml.LocalTime:
		return tv.String()
	default:
		return v
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
