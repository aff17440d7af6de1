// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"keel/pkg/datastore"
)

// ToPairs flattens a settings tree into datastore pairs. The root value
// must be a struct or a string-keyed map: a named struct contributes its
// lowercased type name as the first key segment, while map entries become
// first segments themselves. Scalars and lists cannot anchor a key space
// and fail with ErrMissingPrefix; use ToPairsWithPrefix for those.
//
// Nil pointers, nil maps, and nil slices emit nothing, keeping absent
// settings distinct from empty ones.
func ToPairs(v any) (map[datastore.Key]string, error) {
	pairs := make(map[datastore.Key]string)
	rv, ok := deref(reflect.ValueOf(v))
	if !ok {
		return pairs, nil
	}
	switch rv.Kind() {
	case reflect.Struct:
		prefix, err := rootPrefix(rv.Type())
		if err != nil {
			return nil, err
		}
		if err := serializeValue(pairs, prefix, rv); err != nil {
			return nil, err
		}
	case reflect.Map:
		if err := serializeValue(pairs, "", rv); err != nil {
			return nil, err
		}
	default:
		return nil, &MissingPrefixError{Type: rv.Type().String()}
	}
	return pairs, nil
}

// ToPairsWithPrefix flattens a value rooted at the given dotted prefix
// instead of deriving the root from the value's type. Struct fields and
// map entries extend the prefix; a scalar or list lands at the prefix
// itself.
func ToPairsWithPrefix(prefix string, v any) (map[datastore.Key]string, error) {
	if _, err := datastore.NewKey(datastore.KindData, prefix); err != nil {
		return nil, fmt.Errorf("bad serialization prefix: %w", err)
	}
	pairs := make(map[datastore.Key]string)
	rv, ok := deref(reflect.ValueOf(v))
	if !ok {
		return pairs, nil
	}
	if err := serializeValue(pairs, prefix, rv); err != nil {
		return nil, err
	}
	return pairs, nil
}

// serializeValue walks rv depth-first, appending one pair per leaf.
// Structs and maps extend the prefix; everything else is a leaf encoded
// whole as canonical text, including lists.
func serializeValue(pairs map[datastore.Key]string, prefix string, rv reflect.Value) error {
	rv, ok := deref(rv)
	if !ok {
		return nil
	}
	switch rv.Kind() {
	case reflect.Struct:
		return serializeStruct(pairs, prefix, rv)
	case reflect.Map:
		return serializeMap(pairs, prefix, rv)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &InvalidTypeError{Type: rv.Type().String(), Path: prefix}
		}
		if rv.IsNil() {
			return nil
		}
		return emitLeaf(pairs, prefix, rv)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &InvalidTypeError{Type: rv.Type().String(), Path: prefix}
		}
		return emitLeaf(pairs, prefix, rv)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64:
		return emitLeaf(pairs, prefix, rv)
	default:
		// uint64 and friends can exceed the signed range of the
		// canonical representation; channels, funcs, and complex
		// numbers have no representation at all.
		return &InvalidTypeError{Type: rv.Type().String(), Path: prefix}
	}
}

func serializeStruct(pairs map[datastore.Key]string, prefix string, rv reflect.Value) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		segment, ok := fieldSegment(sf)
		if !ok {
			continue
		}
		if err := checkSegmentName(segment); err != nil {
			return fmt.Errorf("field %s of %s: %w", sf.Name, t, err)
		}
		if err := serializeValue(pairs, joinPrefix(prefix, segment), rv.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func serializeMap(pairs map[datastore.Key]string, prefix string, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return &InvalidTypeError{Type: rv.Type().String(), Path: prefix}
	}
	if rv.IsNil() {
		return nil
	}
	keys := make([]string, 0, rv.Len())
	for _, mk := range rv.MapKeys() {
		keys = append(keys, mk.String())
	}
	sort.Strings(keys)
	keyType := rv.Type().Key()
	for _, mk := range keys {
		if err := checkSegmentName(mk); err != nil {
			return &BadMapKeyError{Key: mk, Reason: err}
		}
		elem := rv.MapIndex(reflect.ValueOf(mk).Convert(keyType))
		if err := serializeValue(pairs, joinPrefix(prefix, mk), elem); err != nil {
			return err
		}
	}
	return nil
}

// emitLeaf encodes rv whole and stores it under the accumulated prefix.
func emitLeaf(pairs map[datastore.Key]string, prefix string, rv reflect.Value) error {
	if prefix == "" {
		return &MissingPrefixError{Type: rv.Type().String()}
	}
	key, err := datastore.NewKey(datastore.KindData, prefix)
	if err != nil {
		return err
	}
	text, err := EncodeScalar(rv.Interface())
	if err != nil {
		return &ValueError{Key: prefix, Err: err}
	}
	pairs[key] = text
	return nil
}

// deref unwraps pointers and interfaces, reporting false for nil so the
// caller can treat the value as absent.
func deref(rv reflect.Value) (reflect.Value, bool) {
	for {
		switch rv.Kind() {
		case reflect.Invalid:
			return rv, false
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return rv, false
			}
			rv = rv.Elem()
		default:
			return rv, true
		}
	}
}

// rootPrefix derives the first key segment from a struct type's name.
func rootPrefix(t reflect.Type) (string, error) {
	name := t.Name()
	if name == "" {
		return "", &MissingPrefixError{Type: t.String()}
	}
	segment := strings.ToLower(name)
	if err := checkSegmentName(segment); err != nil {
		return "", fmt.Errorf("type name %s is not usable as a key segment: %w", name, err)
	}
	return segment, nil
}

// fieldSegment returns the key segment for a struct field, honoring toml
// and json tags in that order. A "-" tag excludes the field; an untagged
// field contributes its lowercased name.
func fieldSegment(sf reflect.StructField) (string, bool) {
	for _, tag := range []string{"toml", "json"} {
		v, ok := sf.Tag.Lookup(tag)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
		break
	}
	return strings.ToLower(sf.Name), true
}

func checkSegmentName(segment string) error {
	_, err := datastore.KeyFromSegments(datastore.KindData, []string{segment})
	return err
}

func joinPrefix(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + datastore.Separator + segment
}
