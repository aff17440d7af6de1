// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeScalar renders a single value as canonical text. Strings gain
// JSON quoting, so the stored form is unambiguous about its type:
// "42" the string and 42 the number stay distinct.
func EncodeScalar(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("value cannot be encoded as canonical text: %w", err)
	}
	// Encode appends a newline that is not part of the value.
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeScalar parses canonical text into target, which must be a
// non-nil pointer.
func DecodeScalar(text string, target any) error {
	if err := json.Unmarshal([]byte(text), target); err != nil {
		return fmt.Errorf("canonical text cannot be decoded: %w", err)
	}
	return nil
}
