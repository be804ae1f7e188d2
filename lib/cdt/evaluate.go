package cdt

import "fmt"

// --------------------------------------------------------------------------
// Selector Evaluation
// --------------------------------------------------------------------------

// Match is an element selected by a selector.
type Match struct {
	Index int // position in the collection (key order for maps)
	Key   any // map key, nil for lists
	Value any
}

// Evaluate returns the elements of the list or map c selected by sel.
//
// Matches are in ascending index order, except for rank selectors which
// return them in ascending rank order. With inverted set the complement of
// the selected elements is returned, always in ascending index order.
//
// Point selectors (ByIndex, ByRank) fail with ErrIndexOutOfRange or
// ErrRankOutOfRange if the position is outside the collection. Range
// selectors are clipped to the collection and never fail for that reason.
func Evaluate(c any, sel Selector, inverted bool) ([]Match, error) {
	v, err := newView(c)
	if err != nil {
		return nil, err
	}
	indices, err := v.evaluate(sel, inverted)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(indices))
	for i, idx := range indices {
		matches[i] = Match{Index: idx, Value: v.items[idx]}
		if v.isMap {
			matches[i].Key = v.keys[idx]
		}
	}
	return matches, nil
}

// evaluate resolves sel against the view and returns the selected indices.
func (v *view) evaluate(sel Selector, inverted bool) ([]int, error) {
	sel, err := normalizeSelector(sel)
	if err != nil {
		return nil, err
	}
	if err := validate(sel); err != nil {
		return nil, err
	}
	if isKeySelector(sel) && !v.isMap {
		return nil, fmt.Errorf("%w: %s requires a map", ErrInvalidParam, sel)
	}

	n := v.size()
	var matched []int

	switch s := sel.(type) {
	case ByIndex:
		i, ok := resolvePoint(s.Index, n)
		if !ok {
			return nil, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, s.Index, n)
		}
		matched = []int{i}

	case ByIndexRange:
		start, end := resolveRange(s.Index, s.Count, s.ToEnd, n)
		matched = make([]int, 0, end-start)
		for i := start; i < end; i++ {
			matched = append(matched, i)
		}

	case ByRank:
		r, ok := resolvePoint(s.Rank, n)
		if !ok {
			return nil, fmt.Errorf("%w: rank %d, size %d", ErrRankOutOfRange, s.Rank, n)
		}
		matched = []int{v.rankOrder()[r]}

	case ByRankRange:
		start, end := resolveRange(s.Rank, s.Count, s.ToEnd, n)
		matched = append([]int(nil), v.rankOrder()[start:end]...)

	case ByValue:
		matched = filter(v.items, func(x any) bool { return Equal(x, s.Value) })

	case ByValueList:
		matched = filter(v.items, func(x any) bool { return contains(s.Values, x) })

	case ByValueRange:
		matched = filter(v.items, func(x any) bool { return inRange(x, s.Begin, s.End) })

	case ByKey:
		matched = filter(v.keys, func(x any) bool { return Equal(x, s.Key) })

	case ByKeyList:
		matched = filter(v.keys, func(x any) bool { return contains(s.Keys, x) })

	case ByKeyRange:
		matched = filter(v.keys, func(x any) bool { return inRange(x, s.Begin, s.End) })

	default:
		return nil, fmt.Errorf("%w: unknown selector %T", ErrInvalidParam, sel)
	}

	if inverted {
		return complement(matched, n), nil
	}
	return matched, nil
}

// filter returns the indices of all elements of xs accepted by keep.
func filter(xs []any, keep func(any) bool) []int {
	out := make([]int, 0)
	for i, x := range xs {
		if keep(x) {
			out = append(out, i)
		}
	}
	return out
}

// complement returns all indices in [0, n) that are not in matched, ascending.
func complement(matched []int, n int) []int {
	excluded := make([]bool, n)
	for _, i := range matched {
		excluded[i] = true
	}
	out := make([]int, 0, n-len(matched))
	for i := 0; i < n; i++ {
		if !excluded[i] {
			out = append(out, i)
		}
	}
	return out
}

func contains(values []any, x any) bool {
	for _, v := range values {
		if Equal(v, x) {
			return true
		}
	}
	return false
}

// inRange reports whether begin <= x < end. A nil bound is unbounded.
func inRange(x, begin, end any) bool {
	if begin != nil && Compare(x, begin) < 0 {
		return false
	}
	return end == nil || Compare(x, end) < 0
}

