// Package model exposes raw Blue Alliance JSON through a fixed attribute
// surface. Each record kind declares which presented names alias which raw
// keys and which fields are derived on read.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	// ErrMissingField is returned when a requested attribute is not present
	// in the backing data after alias resolution
	ErrMissingField = errors.New("data key does not exist")

	// ErrInvalidValue is returned when a field exists but cannot be converted
	// to the requested type
	ErrInvalidValue = errors.New("data value has unexpected type")

	// ErrNoConversion is returned by AsString/AsInt for kinds that define no
	// conversion
	ErrNoConversion = errors.New("kind defines no conversion")
)

// Transform derives the presented value of a field from its raw value.
// Transforms must not modify raw.
type Transform func(m *Model, raw any) (any, error)

// Kind describes one record type: its aliases, derived fields and
// conversions.
type Kind struct {
	Name string

	// Alias maps a presented name to the raw key it reads from
	Alias map[string]string

	// Transforms are looked up by presented name first, then by raw key
	Transforms map[string]Transform

	Str func(m *Model) (string, error)
	Int func(m *Model) (int, error)
}

// Canonical resolves name through the alias table.
func (k *Kind) Canonical(name string) string {
	if key, ok := k.Alias[name]; ok {
		return key
	}
	return name
}

func (k *Kind) transform(name, key string) Transform {
	if t, ok := k.Transforms[name]; ok {
		return t
	}
	if t, ok := k.Transforms[key]; ok {
		return t
	}
	return nil
}

// Generic is used when Wrap is given a nil kind.
var Generic = &Kind{Name: "Data"}

// Model is a read-mostly view over one raw JSON object.
type Model struct {
	kind *Kind
	raw  map[string]any
}

// Wrap builds a model of the given kind. raw may be a JSON object, a JSON
// array (keyed by index), encoded JSON, or any map with string keys.
// Anything else yields an empty model.
func Wrap(kind *Kind, raw any) *Model {
	if kind == nil {
		kind = Generic
	}
	return &Model{kind: kind, raw: toMap(raw)}
}

// Kind returns the record kind of the model.
func (m *Model) Kind() *Kind {
	return m.kind
}

// Get returns the presented value of name.
func (m *Model) Get(name string) (any, error) {
	key := m.kind.Canonical(name)
	value, ok := m.raw[key]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", m.kind.Name, name, ErrMissingField)
	}
	if t := m.kind.transform(name, key); t != nil {
		return t(m, value)
	}
	return value, nil
}

// Has reports whether name resolves to a present raw key.
func (m *Model) Has(name string) bool {
	_, ok := m.raw[m.kind.Canonical(name)]
	return ok
}

// Set writes value under the raw key name resolves to. No transform is
// applied.
func (m *Model) Set(name string, value any) {
	m.raw[m.kind.Canonical(name)] = value
}

// Flatten returns the backing raw map.
func (m *Model) Flatten() map[string]any {
	return m.raw
}

// Lookup resolves a dotted attribute path such as "record.wins", descending
// through nested models.
func (m *Model) Lookup(path string) (any, error) {
	var cur any = m
	for _, name := range splitPath(path) {
		next, ok := cur.(*Model)
		if !ok || next == nil {
			return nil, fmt.Errorf("%s: %q is not a record: %w", path, name, ErrMissingField)
		}
		v, err := next.Get(name)
		if err != nil {
			return nil, err
		}
		cur = v
	}
	return cur, nil
}

// GetString returns name as a string.
func (m *Model) GetString(name string) (string, error) {
	v, err := m.Get(name)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
}

// GetInt returns name as an int. Numeric strings are accepted.
func (m *Model) GetInt(name string) (int, error) {
	v, err := m.Get(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	if f, ok := toFloat(v); ok {
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%s.%s is %v, not a whole number: %w", m.kind.Name, name, f, ErrInvalidValue)
		}
		return int(f), nil
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
}

// GetFloat returns name as a float64.
func (m *Model) GetFloat(name string) (float64, error) {
	v, err := m.Get(name)
	if err != nil {
		return 0, err
	}
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
}

// GetBool returns name as a bool.
func (m *Model) GetBool(name string) (bool, error) {
	v, err := m.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
	}
	return b, nil
}

// GetTime returns a field whose transform yields a time.Time. A null raw
// value gives the zero time.
func (m *Model) GetTime(name string) (time.Time, error) {
	v, err := m.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
}

// GetModel returns a nested record. A null raw value gives nil.
func (m *Model) GetModel(name string) (*Model, error) {
	v, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	switch c := v.(type) {
	case *Model:
		return c, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
}

// GetList returns a nested list of records.
func (m *Model) GetList(name string) (*List, error) {
	v, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	l, ok := v.(*List)
	if !ok {
		return nil, fmt.Errorf("%s.%s is %T: %w", m.kind.Name, name, v, ErrInvalidValue)
	}
	return l, nil
}

// AsString converts the record to its identifying string, e.g. a team key.
func (m *Model) AsString() (string, error) {
	if m.kind.Str == nil {
		return "", fmt.Errorf("%s: %w", m.kind.Name, ErrNoConversion)
	}
	return m.kind.Str(m)
}

// AsInt converts the record to its identifying number, e.g. a team number.
func (m *Model) AsInt() (int, error) {
	if m.kind.Int == nil {
		return 0, fmt.Errorf("%s: %w", m.kind.Name, ErrNoConversion)
	}
	return m.kind.Int(m)
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	if s, err := m.AsString(); err == nil {
		return fmt.Sprintf("<tba.%s: %s>", m.kind.Name, s)
	}
	return fmt.Sprintf("<tba.%s>", m.kind.Name)
}

func toMap(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case *Model:
		if v == nil {
			return map[string]any{}
		}
		return v.raw
	case []any:
		out := make(map[string]any, len(v))
		for i, e := range v {
			out[strconv.Itoa(i)] = e
		}
		return out
	case json.RawMessage:
		return decodeMap(v)
	case []byte:
		return decodeMap(v)
	case string:
		return decodeMap([]byte(v))
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	}
	return map[string]any{}
}

func decodeMap(b []byte) map[string]any {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return map[string]any{}
	}
	switch v.(type) {
	case map[string]any, []any:
		return toMap(v)
	}
	return map[string]any{}
}
