package cdt

import (
	"fmt"
	"sort"
)

// --------------------------------------------------------------------------
// Order and Sort Flags
// --------------------------------------------------------------------------

// Order is the ordering mode of a list.
type Order uint8

const (
	Unordered Order = iota // insertion order is kept
	Ordered                // elements are kept in ascending value order
)

func (o Order) String() string {
	if o == Ordered {
		return "Ordered"
	}
	return "Unordered"
}

// SortFlags modify Sort.
type SortFlags uint8

const (
	SortDefault        SortFlags = 0
	SortDropDuplicates SortFlags = 1 << 1 // keep one element of each group of equal values
)

// --------------------------------------------------------------------------
// Removal
// --------------------------------------------------------------------------

// RemoveBy removes the elements of the list or map c selected by sel.
//
// It returns the removed elements rendered as rt, computed against c before
// the removal, and the new collection. Surviving elements keep their relative
// order. c itself is never modified, so a failed call leaves no trace.
func RemoveBy(c any, sel Selector, rt ReturnType, inverted bool) (removed any, out any, err error) {
	v, err := newView(c)
	if err != nil {
		return nil, nil, err
	}
	indices, err := v.evaluate(sel, inverted)
	if err != nil {
		return nil, nil, err
	}
	removed, err = v.project(indices, rt, isPoint(sel) && !inverted)
	if err != nil {
		return nil, nil, err
	}

	drop := make([]bool, v.size())
	for _, i := range indices {
		drop[i] = true
	}

	switch t := c.(type) {
	case []any:
		return removed, keepItems(t, drop), nil
	case OrderedList:
		return removed, OrderedList(keepItems(t, drop)), nil
	default:
		m := c.(Map)
		kept := make(Map, 0, len(m)-len(indices))
		for i, e := range m {
			if !drop[i] {
				kept = append(kept, e)
			}
		}
		return removed, kept, nil
	}
}

func keepItems(items []any, drop []bool) []any {
	kept := make([]any, 0, len(items))
	for i, item := range items {
		if !drop[i] {
			kept = append(kept, item)
		}
	}
	return kept
}

// --------------------------------------------------------------------------
// List Mutations
// --------------------------------------------------------------------------

// SetOrder changes the ordering mode of list l. Switching to Ordered sorts
// the list ascending; subsequent appends keep it sorted.
func SetOrder(l any, order Order) (any, error) {
	items, _, err := asList(l)
	if err != nil {
		return nil, err
	}
	switch order {
	case Ordered:
		return sortedList(items), nil
	case Unordered:
		return append([]any{}, items...), nil
	}
	return nil, fmt.Errorf("%w: unknown order %d", ErrInvalidParam, order)
}

// Sort sorts list l ascending. With SortDropDuplicates only the first of each
// run of equal values is kept. The ordering mode of l is preserved.
func Sort(l any, flags SortFlags) (any, error) {
	items, ordered, err := asList(l)
	if err != nil {
		return nil, err
	}
	sorted := []any(sortedList(items))
	if flags&SortDropDuplicates != 0 {
		sorted = dedupeSorted(sorted)
	}
	if ordered {
		return OrderedList(sorted), nil
	}
	return sorted, nil
}

func dedupeSorted(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if n := len(out); n > 0 && Equal(out[n-1], item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Append adds values to the end of list l, or at their sorted position if l
// is ordered. A nil l is treated as an empty unordered list.
// It returns the new list and its size.
func Append(l any, values ...any) (any, int64, error) {
	if l == nil {
		l = []any{}
	}
	items, ordered, err := asList(l)
	if err != nil {
		return nil, 0, err
	}
	values, err = normalizeList(values)
	if err != nil {
		return nil, 0, err
	}

	out := make([]any, 0, len(items)+len(values))
	out = append(out, items...)
	if !ordered {
		out = append(out, values...)
		return out, int64(len(out)), nil
	}
	for _, val := range values {
		pos := sort.Search(len(out), func(i int) bool { return Compare(out[i], val) > 0 })
		out = append(out, nil)
		copy(out[pos+1:], out[pos:])
		out[pos] = val
	}
	return OrderedList(out), int64(len(out)), nil
}

// Insert inserts values before position index of the unordered list l.
// index may equal the list size to append, a negative index counts from the end.
// Ordered lists reject inserts with ErrInvalidParam.
func Insert(l any, index int, values ...any) (any, int64, error) {
	if l == nil {
		l = []any{}
	}
	items, ordered, err := asList(l)
	if err != nil {
		return nil, 0, err
	}
	if ordered {
		return nil, 0, fmt.Errorf("%w: insert by index into an ordered list", ErrInvalidParam)
	}
	pos := index
	if pos < 0 {
		pos += len(items)
	}
	if pos < 0 || pos > len(items) {
		return nil, 0, fmt.Errorf("%w: insert index %d, size %d", ErrIndexOutOfRange, index, len(items))
	}
	values, err = normalizeList(values)
	if err != nil {
		return nil, 0, err
	}

	out := make([]any, 0, len(items)+len(values))
	out = append(out, items[:pos]...)
	out = append(out, values...)
	out = append(out, items[pos:]...)
	return out, int64(len(out)), nil
}

// --------------------------------------------------------------------------
// Map Mutations
// --------------------------------------------------------------------------

// Put stores value under key in map m. A nil m is treated as an empty map.
// It returns the new map and its size.
func Put(m any, key, value any) (any, int64, error) {
	if m == nil {
		m = Map{}
	}
	mp, ok := m.(Map)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected map, got %s", ErrTypeMismatch, kindName(m))
	}
	key, err := Normalize(key)
	if err != nil {
		return nil, 0, err
	}
	value, err = Normalize(value)
	if err != nil {
		return nil, 0, err
	}

	i, found := mp.find(key)
	out := make(Map, 0, len(mp)+1)
	out = append(out, mp[:i]...)
	out = append(out, MapEntry{Key: key, Value: value})
	if found {
		i++
	}
	out = append(out, mp[i:]...)
	return out, int64(len(out)), nil
}

// --------------------------------------------------------------------------
// Shared Collection Operations
// --------------------------------------------------------------------------

// Size returns the number of elements of a list or map.
func Size(c any) (int64, error) {
	switch t := c.(type) {
	case []any:
		return int64(len(t)), nil
	case OrderedList:
		return int64(len(t)), nil
	case Map:
		return int64(len(t)), nil
	}
	return 0, fmt.Errorf("%w: expected list or map, got %s", ErrTypeMismatch, kindName(c))
}

// Clear returns an empty collection of the same type as c.
func Clear(c any) (any, error) {
	switch c.(type) {
	case []any:
		return []any{}, nil
	case OrderedList:
		return OrderedList{}, nil
	case Map:
		return Map{}, nil
	}
	return nil, fmt.Errorf("%w: expected list or map, got %s", ErrTypeMismatch, kindName(c))
}

// asList returns the elements of l and whether l is ordered.
func asList(l any) ([]any, bool, error) {
	switch t := l.(type) {
	case []any:
		return t, false, nil
	case OrderedList:
		return t, true, nil
	}
	return nil, false, fmt.Errorf("%w: expected list, got %s", ErrTypeMismatch, kindName(l))
}
