// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"keel/pkg/datastore"
)

type (
	// DecodeOption adjusts deserialization behavior.
	DecodeOption func(*decodeConfig)

	decodeConfig struct {
		strict bool
	}

	// group collects everything below one key segment: the scalar text
	// stored at the segment itself, and the relative keys beneath it.
	group struct {
		text     string
		isLeaf   bool
		children map[string]string
	}
)

// Strict makes deserialization fail with an UnknownKeyError when a key
// has no corresponding field in the target, instead of ignoring it.
func Strict() DecodeOption {
	return func(c *decodeConfig) { c.strict = true }
}

// FromPairs rebuilds a settings tree from datastore pairs. The target
// must be a non-nil pointer to a named struct; the struct's lowercased
// type name is the expected first segment of every key and is stripped
// before matching fields. Map and scalar targets have no name to anchor
// the key space and fail with ErrBadRoot; use FromPairsWithPrefix.
//
// Keys with no corresponding field are ignored unless Strict is given.
// An empty pairs map leaves the target untouched.
func FromPairs(pairs map[datastore.Key]string, target any, opts ...DecodeOption) error {
	elem, err := decodeTarget(target)
	if err != nil {
		return err
	}
	t := elem.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("cannot derive a key prefix for %s: %w", t, ErrBadRoot)
	}
	if t.Name() == "" {
		return fmt.Errorf("anonymous struct has no name to derive a key prefix from: %w", ErrBadRoot)
	}
	prefix := strings.ToLower(t.Name())
	if err := checkSegmentName(prefix); err != nil {
		return fmt.Errorf("type name %s is not usable as a key segment: %w", t.Name(), err)
	}
	return fromPairsAt(prefix, pairs, elem, opts)
}

// FromPairsWithPrefix rebuilds a value from the pairs below the given
// dotted prefix. Every key must start with the prefix; the remainder
// after stripping it is matched against the target, which may be a
// struct or a string-keyed map.
func FromPairsWithPrefix(prefix string, pairs map[datastore.Key]string, target any, opts ...DecodeOption) error {
	if _, err := datastore.NewKey(datastore.KindData, prefix); err != nil {
		return fmt.Errorf("bad deserialization prefix: %w", err)
	}
	elem, err := decodeTarget(target)
	if err != nil {
		return err
	}
	return fromPairsAt(prefix, pairs, elem, opts)
}

// decodeTarget unwraps the target pointer into the settable value to fill.
func decodeTarget(target any) (reflect.Value, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("deserialization target must be a non-nil pointer, got %T", target)
	}
	return rv.Elem(), nil
}

func fromPairsAt(prefix string, pairs map[datastore.Key]string, elem reflect.Value, opts []DecodeOption) error {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	rel := make(map[string]string, len(pairs))
	for key, text := range pairs {
		rest, err := key.StripPrefix(prefix)
		if err != nil {
			return err
		}
		rel[rest.Name()] = text
	}
	return fill(elem, rel, prefix, cfg)
}

// fill recursively assigns the relative keys in rel to the compound
// value v. base is the absolute dotted path to v, used in errors.
func fill(v reflect.Value, rel map[string]string, base string, cfg decodeConfig) error {
	if len(rel) == 0 {
		return nil
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	groups := make(map[string]*group)
	for name, text := range rel {
		first, rest, found := strings.Cut(name, datastore.Separator)
		g := groups[first]
		if g == nil {
			g = &group{children: make(map[string]string)}
			groups[first] = g
		}
		if found {
			g.children[rest] = text
		} else {
			g.text = text
			g.isLeaf = true
		}
	}
	segments := make([]string, 0, len(groups))
	for segment := range groups {
		segments = append(segments, segment)
	}
	sort.Strings(segments)

	for _, segment := range segments {
		g := groups[segment]
		path := joinPrefix(base, segment)
		if g.isLeaf && len(g.children) > 0 {
			return fmt.Errorf("key %q is both a value and a prefix of other keys", path)
		}
		switch v.Kind() {
		case reflect.Struct:
			dest, ok := fieldBySegment(v, segment)
			if !ok {
				if cfg.strict {
					return &UnknownKeyError{Key: path}
				}
				continue
			}
			if err := assign(dest, g, path, cfg); err != nil {
				return err
			}
		case reflect.Map:
			t := v.Type()
			if t.Key().Kind() != reflect.String {
				return &InvalidTypeError{Type: t.String(), Path: path}
			}
			if v.IsNil() {
				v.Set(reflect.MakeMap(t))
			}
			entry := reflect.New(t.Elem()).Elem()
			if err := assign(entry, g, path, cfg); err != nil {
				return err
			}
			v.SetMapIndex(reflect.ValueOf(segment).Convert(t.Key()), entry)
		default:
			return fmt.Errorf("key %q addresses into non-compound value of type %s", path, v.Type())
		}
	}
	return nil
}

// assign routes one group to its destination: scalar text decodes whole
// into dest, child keys recurse.
func assign(dest reflect.Value, g *group, path string, cfg decodeConfig) error {
	if g.isLeaf {
		return decodeLeaf(dest, g.text, path)
	}
	return fill(dest, g.children, path, cfg)
}

// decodeLeaf parses canonical text into dest, allocating intermediate
// pointers as needed. Lists arrive here too: they are stored whole under
// a single key.
func decodeLeaf(dest reflect.Value, text, path string) error {
	for dest.Kind() == reflect.Pointer {
		if dest.IsNil() {
			dest.Set(reflect.New(dest.Type().Elem()))
		}
		dest = dest.Elem()
	}
	if err := DecodeScalar(text, dest.Addr().Interface()); err != nil {
		return &ValueError{Key: path, Err: err}
	}
	return nil
}

// fieldBySegment finds the exported struct field whose key segment
// matches, honoring the same tag rules serialization uses.
func fieldBySegment(v reflect.Value, segment string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, ok := fieldSegment(sf)
		if ok && name == segment {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
