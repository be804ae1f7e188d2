package cdt

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// --------------------------------------------------------------------------
// Value Model
// --------------------------------------------------------------------------

// A value handled by this package is always one of:
//
//	nil, bool, int64, float64, string, []byte,
//	[]any        (unordered list, insertion order is kept),
//	OrderedList  (list kept in ascending value order),
//	Map          (entries kept in ascending key order).
//
// Use Normalize to convert arbitrary Go values into this model.

// OrderedList is a list whose elements are kept in ascending value order.
// Appending to an ordered list inserts the element at its sorted position.
type OrderedList []any

// MapEntry is a single key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is a key/value collection. Entries are sorted by key and keys are unique,
// so the position of an entry is its index for index based selectors.
type Map []MapEntry

// Get returns the value stored for key.
func (m Map) Get(key any) (any, bool) {
	i, found := m.find(key)
	if !found {
		return nil, false
	}
	return m[i].Value, true
}

// find returns the position of key or the position it would be inserted at.
func (m Map) find(key any) (int, bool) {
	i := sort.Search(len(m), func(i int) bool { return Compare(m[i].Key, key) >= 0 })
	return i, i < len(m) && Compare(m[i].Key, key) == 0
}

// Keys returns the keys of the map in key order.
func (m Map) Keys() []any {
	keys := make([]any, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// Values returns the values of the map in key order.
func (m Map) Values() []any {
	values := make([]any, len(m))
	for i, e := range m {
		values[i] = e.Value
	}
	return values
}

// --------------------------------------------------------------------------
// Kinds
// --------------------------------------------------------------------------

// Kind is the type class of a value. The numeric value of a kind defines the
// order between values of different classes.
type Kind uint8

const (
	KindNil    Kind = iota // nil
	KindBool               // false < true
	KindNumber             // int64 and float64, compared numerically
	KindString             // lexicographic by bytes
	KindBytes              // lexicographic
	KindList               // element-wise, then by length
	KindMap                // entry-wise (key, then value), then by size
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of a normalized value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNil
	case bool:
		return KindBool
	case int64, float64:
		return KindNumber
	case string:
		return KindString
	case []byte:
		return KindBytes
	case []any, OrderedList:
		return KindList
	case Map:
		return KindMap
	default:
		panic(fmt.Sprintf("cdt: value of type %T is not normalized", v))
	}
}

// IsList reports whether v is an ordered or unordered list.
func IsList(v any) bool {
	switch v.(type) {
	case []any, OrderedList:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts v into the value model of this package.
// All integer widths become int64, float32 becomes float64, json.Number is
// parsed, slices become []any and maps become Map. Nested values are
// normalized recursively and the input is never modified.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, string:
		return t, nil
	case float64:
		return normalizeFloat(t)
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return normalizeUint(uint64(t))
	case uint64:
		return normalizeUint(t)
	case float32:
		return normalizeFloat(float64(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, t)
		}
		return normalizeFloat(f)
	case []byte:
		return append([]byte(nil), t...), nil
	case []any:
		return normalizeList(t)
	case OrderedList:
		items, err := normalizeList(t)
		if err != nil {
			return nil, err
		}
		return sortedList(items), nil
	case Map:
		entries := make([]MapEntry, len(t))
		for i, e := range t {
			k, err := Normalize(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := Normalize(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = MapEntry{Key: k, Value: val}
		}
		return buildMap(entries), nil
	case map[string]any:
		entries := make([]MapEntry, 0, len(t))
		for k, e := range t {
			val, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: k, Value: val})
		}
		return buildMap(entries), nil
	}
	return normalizeReflect(v)
}

// MustNormalize is like Normalize but panics on error. Intended for literals in tests and examples.
func MustNormalize(v any) any {
	n, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return n
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, u)
	}
	return int64(u), nil
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN has no order", ErrUnsupportedValue)
	}
	return f, nil
}

func normalizeList(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		n, err := Normalize(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// normalizeReflect handles typed slices and maps such as []int or map[int]string.
func normalizeReflect(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		entries := make([]MapEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := Normalize(iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			val, err := Normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: k, Value: val})
		}
		return buildMap(entries), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// buildMap sorts entries by key. For duplicate keys the last entry wins.
func buildMap(entries []MapEntry) Map {
	sort.SliceStable(entries, func(i, j int) bool { return Compare(entries[i].Key, entries[j].Key) < 0 })
	out := make(Map, 0, len(entries))
	for _, e := range entries {
		if n := len(out); n > 0 && Compare(out[n-1].Key, e.Key) == 0 {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

// sortedList returns a sorted copy of items as an OrderedList.
func sortedList(items []any) OrderedList {
	out := make(OrderedList, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return out
}
