// Package superjson reads and writes the structure-preserving JSON envelope
// used by the RPC endpoint:
//
//	{"json": <plain JSON>, "meta": {"values": {"user.created_at": ["Date"]}}}
//
// Values that plain JSON would flatten to strings are listed in meta.values
// under their dotted path, so a reader can turn them back into their
// original type. Only dates are annotated.
package superjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TypeDate is the annotation of a time.Time value.
const TypeDate = "Date"

type Envelope struct {
	JSON json.RawMessage `json:"json"`
	Meta *Meta           `json:"meta,omitempty"`
}

type Meta struct {
	Values map[string][]string `json:"values,omitempty"`
}

// UnmarshalJSON accepts the bare-list form ("values": ["undefined"]) that
// annotates the root value; it carries no paths and is dropped.
func (m *Meta) UnmarshalJSON(b []byte) error {
	var aux struct {
		Values json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.Values = nil
	if v := bytes.TrimSpace(aux.Values); len(v) == 0 || v[0] != '{' {
		return nil
	}
	return json.Unmarshal(aux.Values, &m.Values)
}

// Marshal wraps v in an envelope and annotates every time.Time it contains.
// A date at the root is encoded but not annotated.
func Marshal(v any) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("superjson: %w", err)
	}

	values := map[string][]string{}
	walk(reflect.ValueOf(v), nil, values)

	env := Envelope{JSON: raw}
	if len(values) > 0 {
		env.Meta = &Meta{Values: values}
	}
	return env, nil
}

// Unmarshal decodes the payload of env into out. Typed targets restore
// dates through time.Time's own decoder; for untyped targets (*any) the
// annotated paths are converted to time.Time in place.
func Unmarshal(env Envelope, out any) error {
	if len(bytes.TrimSpace(env.JSON)) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.JSON, out); err != nil {
		return fmt.Errorf("superjson: %w", err)
	}

	if p, ok := out.(*any); ok && env.Meta != nil {
		for path, types := range env.Meta.Values {
			if len(types) == 1 && types[0] == TypeDate {
				*p = restoreDate(*p, splitPath(path))
			}
		}
	}
	return nil
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

func walk(v reflect.Value, path []string, out map[string][]string) {
	if !v.IsValid() {
		return
	}

	if v.Type() == timeType {
		if len(path) > 0 {
			out[joinPath(path)] = []string{TypeDate}
		}
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			walk(v.Elem(), path, out)
		}
		return
	}

	// other custom encodings are opaque
	if v.Type().Implements(marshalerType) {
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		walkStruct(v, path, out)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), appendPath(path, strconv.Itoa(i)), out)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			walk(iter.Value(), appendPath(path, iter.Key().String()), out)
		}
	}
}

func walkStruct(v reflect.Value, path []string, out map[string][]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}

		fv := v.Field(i)
		if f.Anonymous && name == "" {
			walk(fv, path, out)
			continue
		}
		if name == "" {
			name = f.Name
		}
		if strings.Contains(opts, "omitempty") && fv.IsZero() && fv.Kind() != reflect.Struct {
			continue
		}
		walk(fv, appendPath(path, name), out)
	}
}

func appendPath(path []string, key string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, key)
}

// joinPath escapes dots and backslashes inside keys.
func joinPath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		p = strings.ReplaceAll(p, `\`, `\\`)
		parts[i] = strings.ReplaceAll(p, ".", `\.`)
	}
	return strings.Join(parts, ".")
}

func splitPath(path string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(path); i++ {
		switch c := path[i]; {
		case c == '\\' && i+1 < len(path):
			i++
			cur.WriteByte(path[i])
		case c == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}

func restoreDate(node any, path []string) any {
	if len(path) == 0 {
		if s, ok := node.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
		return node
	}

	switch n := node.(type) {
	case map[string]any:
		if child, ok := n[path[0]]; ok {
			n[path[0]] = restoreDate(child, path[1:])
		}
	case []any:
		if i, err := strconv.Atoi(path[0]); err == nil && i >= 0 && i < len(n) {
			n[i] = restoreDate(n[i], path[1:])
		}
	}
	return node
}
