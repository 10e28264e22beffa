package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"
)

// List is an ordered set of records built from a JSON array. It keeps the
// raw array alongside the wrapped records.
type List struct {
	kind  *Kind
	items []*Model
	raw   []any
	valid bool
}

// NewList wraps every element of a JSON array. Input that is not an array
// (an error object from the origin, for instance) produces an empty list
// whose Valid reports false.
func NewList(kind *Kind, raw any) *List {
	if kind == nil {
		kind = Generic
	}
	elems, ok := toSlice(raw)
	if !ok {
		return &List{kind: kind}
	}
	l := &List{kind: kind, valid: true, raw: elems, items: make([]*Model, 0, len(elems))}
	for _, e := range elems {
		l.items = append(l.items, Wrap(kind, e))
	}
	return l
}

// Kind returns the record kind of the list elements.
func (l *List) Kind() *Kind { return l.kind }

// Valid distinguishes an empty answer from an invalid one.
func (l *List) Valid() bool { return l.valid }

// Len returns the number of records.
func (l *List) Len() int { return len(l.items) }

// At returns the i-th record.
func (l *List) At(i int) *Model { return l.items[i] }

// Items returns the records in order.
func (l *List) Items() []*Model { return l.items }

// Raw returns the raw array the list was built from.
func (l *List) Raw() []any { return l.raw }

// Filter returns the records whose attributes equal every given value. Keys
// may be dotted paths into nested records.
//
// A record missing a filtered attribute is silently excluded rather than
// reported as an error. Any other lookup failure, such as a transform
// error, is returned.
func (l *List) Filter(preds map[string]any) (*List, error) {
	out := &List{kind: l.kind, valid: l.valid, raw: []any{}, items: []*Model{}}
	for _, item := range l.items {
		ok, err := matches(item, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			out.items = append(out.items, item)
			out.raw = append(out.raw, item.Flatten())
		}
	}
	return out, nil
}

func matches(m *Model, preds map[string]any) (bool, error) {
	for path, want := range preds {
		got, err := m.Lookup(path)
		if errors.Is(err, ErrMissingField) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !equal(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []*Model:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e.Flatten()
		}
		return out, true
	case json.RawMessage:
		return decodeSlice(v)
	case []byte:
		return decodeSlice(v)
	case string:
		return decodeSlice([]byte(v))
	}
	return nil, false
}

func decodeSlice(b []byte) ([]any, bool) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}
