package cdt

import (
	"fmt"
	"sort"
)

// --------------------------------------------------------------------------
// Collection View
// --------------------------------------------------------------------------

// view is a read-only snapshot of a list or map that selectors are evaluated
// against. For maps, items holds the values and keys the keys, both in key order.
type view struct {
	items   []any
	keys    []any
	isMap   bool
	ordered bool

	order []int // indices sorted by (value, index), computed on first use
	ranks []int // ranks[i] is the rank of the element at index i
}

// newView wraps a list or map. Any other value fails with ErrTypeMismatch.
func newView(v any) (*view, error) {
	switch t := v.(type) {
	case []any:
		return &view{items: t}, nil
	case OrderedList:
		return &view{items: t, ordered: true}, nil
	case Map:
		return &view{items: t.Values(), keys: t.Keys(), isMap: true}, nil
	}
	return nil, fmt.Errorf("%w: expected list or map, got %s", ErrTypeMismatch, kindName(v))
}

func (v *view) size() int {
	return len(v.items)
}

// rankOrder returns the element indices in ascending rank order.
// Equal values keep their index order, so the element with the smaller index
// gets the smaller rank.
func (v *view) rankOrder() []int {
	if v.order != nil {
		return v.order
	}
	order := make([]int, len(v.items))
	for i := range order {
		order[i] = i
	}
	if !v.ordered {
		sort.SliceStable(order, func(a, b int) bool {
			return Compare(v.items[order[a]], v.items[order[b]]) < 0
		})
	}
	v.order = order
	return order
}

// rankOf returns the rank of the element at index i.
func (v *view) rankOf(i int) int {
	if v.ranks == nil {
		order := v.rankOrder()
		v.ranks = make([]int, len(order))
		for rank, idx := range order {
			v.ranks[idx] = rank
		}
	}
	return v.ranks[i]
}

// reverseRankOf returns the position of the element at index i in the
// reversed rank order. The largest element has reverse rank 0; among equal
// values the one with the larger index comes first.
func (v *view) reverseRankOf(i int) int {
	return v.size() - 1 - v.rankOf(i)
}

// --------------------------------------------------------------------------
// Ranking
// --------------------------------------------------------------------------

// Rank returns the rank of the element at index in the list or map c.
// Rank 0 is the smallest element. Maps are ranked by value.
// A negative index counts from the end.
func Rank(c any, index int) (int, error) {
	v, err := newView(c)
	if err != nil {
		return 0, err
	}
	i, ok := resolvePoint(index, v.size())
	if !ok {
		return 0, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, index, v.size())
	}
	return v.rankOf(i), nil
}

// ReverseRank returns the reverse rank of the element at index in the list or map c.
// Reverse rank 0 is the largest element.
func ReverseRank(c any, index int) (int, error) {
	v, err := newView(c)
	if err != nil {
		return 0, err
	}
	i, ok := resolvePoint(index, v.size())
	if !ok {
		return 0, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, index, v.size())
	}
	return v.reverseRankOf(i), nil
}

// --------------------------------------------------------------------------
// Position Helpers
// --------------------------------------------------------------------------

// resolvePoint maps a possibly negative position onto [0, size).
func resolvePoint(pos, size int) (int, bool) {
	if pos < 0 {
		pos += size
	}
	return pos, pos >= 0 && pos < size
}

// resolveRange maps a position and count onto the half-open interval
// [start, end) clipped to [0, size). toEnd ignores count.
func resolveRange(pos, count int, toEnd bool, size int) (int, int) {
	if pos < 0 {
		pos += size
	}
	start, end := pos, size
	// count may be huge, so compare before adding
	if !toEnd && (pos < 0 || count < size-pos) {
		end = pos + count
	}
	start = max(start, 0)
	end = min(end, size)
	if start >= end {
		return 0, 0
	}
	return start, end
}

func kindName(v any) string {
	switch v.(type) {
	case nil, bool, int64, float64, string, []byte, []any, OrderedList, Map:
		return KindOf(v).String()
	}
	return fmt.Sprintf("%T", v)
}
