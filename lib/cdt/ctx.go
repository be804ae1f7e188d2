package cdt

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Context Path
// --------------------------------------------------------------------------

// CtxStep is one step of a context path that locates a nested list or map
// inside an outer one. The set of steps is closed.
type CtxStep interface {
	fmt.Stringer
	ctxStep()
}

// CtxListIndex selects the list element at Index.
type CtxListIndex struct{ Index int }

// CtxListRank selects the list element with Rank.
type CtxListRank struct{ Rank int }

// CtxListValue selects the first list element equal to Value.
type CtxListValue struct{ Value any }

// CtxMapIndex selects the map value at Index in key order.
type CtxMapIndex struct{ Index int }

// CtxMapRank selects the map value with Rank.
type CtxMapRank struct{ Rank int }

// CtxMapKey selects the map value stored under Key.
type CtxMapKey struct{ Key any }

// CtxMapValue selects the first map value equal to Value.
type CtxMapValue struct{ Value any }

func (CtxListIndex) ctxStep() {}
func (CtxListRank) ctxStep()  {}
func (CtxListValue) ctxStep() {}
func (CtxMapIndex) ctxStep()  {}
func (CtxMapRank) ctxStep()   {}
func (CtxMapKey) ctxStep()    {}
func (CtxMapValue) ctxStep()  {}

func (s CtxListIndex) String() string { return fmt.Sprintf("list_index(%d)", s.Index) }
func (s CtxListRank) String() string  { return fmt.Sprintf("list_rank(%d)", s.Rank) }
func (s CtxListValue) String() string { return fmt.Sprintf("list_value(%v)", s.Value) }
func (s CtxMapIndex) String() string  { return fmt.Sprintf("map_index(%d)", s.Index) }
func (s CtxMapRank) String() string   { return fmt.Sprintf("map_rank(%d)", s.Rank) }
func (s CtxMapKey) String() string    { return fmt.Sprintf("map_key(%v)", s.Key) }
func (s CtxMapValue) String() string  { return fmt.Sprintf("map_value(%v)", s.Value) }

// PathString renders a context path for log and error messages.
func PathString(path []CtxStep) string {
	parts := make([]string, len(path))
	for i, step := range path {
		parts[i] = step.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// --------------------------------------------------------------------------
// Path Resolution
// --------------------------------------------------------------------------

// Lookup follows path from root and returns the collection it points to.
// An empty path returns root.
func Lookup(root any, path []CtxStep) (any, error) {
	cur := root
	for _, step := range path {
		pos, err := locate(cur, step)
		if err != nil {
			return nil, err
		}
		cur = childAt(cur, pos)
	}
	return cur, nil
}

// Modify follows path from root, replaces the element found there with the
// result of fn and returns the rebuilt root. Every collection along the path
// is copied, root and its descendants are never modified.
func Modify(root any, path []CtxStep, fn func(cur any) (any, error)) (any, error) {
	if len(path) == 0 {
		return fn(root)
	}
	pos, err := locate(root, path[0])
	if err != nil {
		return nil, err
	}
	child, err := Modify(childAt(root, pos), path[1:], fn)
	if err != nil {
		return nil, err
	}
	return replaceAt(root, pos, child), nil
}

// locate returns the position of the element addressed by step within c.
func locate(c any, step CtxStep) (int, error) {
	isMapStep := false
	switch step.(type) {
	case CtxMapIndex, CtxMapRank, CtxMapKey, CtxMapValue:
		isMapStep = true
	}
	_, isMap := c.(Map)
	if isMapStep != isMap || (!isMap && !IsList(c)) {
		want := "list"
		if isMapStep {
			want = "map"
		}
		return 0, fmt.Errorf("%w: context step %s expects a %s, got %s", ErrTypeMismatch, step, want, kindName(c))
	}
	v, _ := newView(c)

	switch s := step.(type) {
	case CtxListIndex:
		return locateIndex(v, s.Index, step)
	case CtxMapIndex:
		return locateIndex(v, s.Index, step)
	case CtxListRank:
		return locateRank(v, s.Rank, step)
	case CtxMapRank:
		return locateRank(v, s.Rank, step)
	case CtxListValue:
		return locateEqual(v.items, s.Value, step)
	case CtxMapValue:
		return locateEqual(v.items, s.Value, step)
	case CtxMapKey:
		return locateEqual(v.keys, s.Key, step)
	}
	return 0, fmt.Errorf("%w: unknown context step %T", ErrInvalidParam, step)
}

func locateIndex(v *view, index int, step CtxStep) (int, error) {
	pos, ok := resolvePoint(index, v.size())
	if !ok {
		return 0, fmt.Errorf("%w: context step %s, size %d", ErrIndexOutOfRange, step, v.size())
	}
	return pos, nil
}

func locateRank(v *view, rank int, step CtxStep) (int, error) {
	r, ok := resolvePoint(rank, v.size())
	if !ok {
		return 0, fmt.Errorf("%w: context step %s, size %d", ErrRankOutOfRange, step, v.size())
	}
	return v.rankOrder()[r], nil
}

func locateEqual(xs []any, want any, step CtxStep) (int, error) {
	want, err := Normalize(want)
	if err != nil {
		return 0, err
	}
	for i, x := range xs {
		if Equal(x, want) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: context step %s", ErrElementNotFound, step)
}

func childAt(c any, pos int) any {
	switch t := c.(type) {
	case []any:
		return t[pos]
	case OrderedList:
		return t[pos]
	case Map:
		return t[pos].Value
	}
	return nil
}

// replaceAt returns a copy of c with the element at pos replaced by child.
// Ordered lists are re-sorted since the new child may compare differently.
func replaceAt(c any, pos int, child any) any {
	switch t := c.(type) {
	case []any:
		out := append([]any{}, t...)
		out[pos] = child
		return out
	case OrderedList:
		out := append([]any{}, t...)
		out[pos] = child
		return sortedList(out)
	case Map:
		out := append(Map{}, t...)
		out[pos].Value = child
		return out
	}
	return c
}
