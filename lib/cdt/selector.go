package cdt

import "fmt"

// --------------------------------------------------------------------------
// Selectors
// --------------------------------------------------------------------------

// Selector identifies a subset of the elements of a list or map.
// The set of selectors is closed; only the types in this file implement it.
type Selector interface {
	fmt.Stringer
	selector()
}

// ByIndex selects the element at Index. A negative index counts from the end.
type ByIndex struct {
	Index int
}

// ByIndexRange selects Count elements starting at Index, clipped to the
// collection bounds. With ToEnd set, Count is ignored and every element from
// Index on is selected.
type ByIndexRange struct {
	Index int
	Count int
	ToEnd bool
}

// ByRank selects the element with the given rank. A negative rank counts from
// the largest element (-1 is the largest).
type ByRank struct {
	Rank int
}

// ByRankRange selects Count elements starting at Rank in ascending rank order.
type ByRankRange struct {
	Rank  int
	Count int
	ToEnd bool
}

// ByValue selects every element equal to Value.
type ByValue struct {
	Value any
}

// ByValueList selects every element equal to one of Values.
type ByValueList struct {
	Values []any
}

// ByValueRange selects every element v with Begin <= v < End.
// A nil bound is unbounded on that side.
type ByValueRange struct {
	Begin any
	End   any
}

// ByKey selects the map entry with the given key.
type ByKey struct {
	Key any
}

// ByKeyList selects every map entry whose key is one of Keys.
type ByKeyList struct {
	Keys []any
}

// ByKeyRange selects every map entry with Begin <= key < End.
// A nil bound is unbounded on that side.
type ByKeyRange struct {
	Begin any
	End   any
}

func (ByIndex) selector()      {}
func (ByIndexRange) selector() {}
func (ByRank) selector()       {}
func (ByRankRange) selector()  {}
func (ByValue) selector()      {}
func (ByValueList) selector()  {}
func (ByValueRange) selector() {}
func (ByKey) selector()        {}
func (ByKeyList) selector()    {}
func (ByKeyRange) selector()   {}

func (s ByIndex) String() string { return fmt.Sprintf("ByIndex(%d)", s.Index) }

func (s ByIndexRange) String() string {
	if s.ToEnd {
		return fmt.Sprintf("ByIndexRange(%d, end)", s.Index)
	}
	return fmt.Sprintf("ByIndexRange(%d, %d)", s.Index, s.Count)
}

func (s ByRank) String() string { return fmt.Sprintf("ByRank(%d)", s.Rank) }

func (s ByRankRange) String() string {
	if s.ToEnd {
		return fmt.Sprintf("ByRankRange(%d, end)", s.Rank)
	}
	return fmt.Sprintf("ByRankRange(%d, %d)", s.Rank, s.Count)
}

func (s ByValue) String() string      { return fmt.Sprintf("ByValue(%v)", s.Value) }
func (s ByValueList) String() string  { return fmt.Sprintf("ByValueList(%v)", s.Values) }
func (s ByValueRange) String() string { return fmt.Sprintf("ByValueRange(%v, %v)", s.Begin, s.End) }
func (s ByKey) String() string        { return fmt.Sprintf("ByKey(%v)", s.Key) }
func (s ByKeyList) String() string    { return fmt.Sprintf("ByKeyList(%v)", s.Keys) }
func (s ByKeyRange) String() string   { return fmt.Sprintf("ByKeyRange(%v, %v)", s.Begin, s.End) }

// IndexRange selects count elements starting at index.
func IndexRange(index, count int) ByIndexRange {
	return ByIndexRange{Index: index, Count: count}
}

// IndexRangeToEnd selects every element from index to the end.
func IndexRangeToEnd(index int) ByIndexRange {
	return ByIndexRange{Index: index, ToEnd: true}
}

// RankRange selects count elements starting at rank.
func RankRange(rank, count int) ByRankRange {
	return ByRankRange{Rank: rank, Count: count}
}

// RankRangeToEnd selects every element from rank to the largest one.
func RankRangeToEnd(rank int) ByRankRange {
	return ByRankRange{Rank: rank, ToEnd: true}
}

// isPoint reports whether the selector addresses at most one element.
// Only point selectors render a scalar result.
func isPoint(s Selector) bool {
	switch s.(type) {
	case ByIndex, ByRank, ByKey:
		return true
	}
	return false
}

// isKeySelector reports whether the selector only applies to maps.
func isKeySelector(s Selector) bool {
	switch s.(type) {
	case ByKey, ByKeyList, ByKeyRange:
		return true
	}
	return false
}

// validate checks the selector fields that are independent of a collection.
func validate(s Selector) error {
	switch t := s.(type) {
	case nil:
		return fmt.Errorf("%w: missing selector", ErrInvalidParam)
	case ByIndexRange:
		if !t.ToEnd && t.Count < 0 {
			return fmt.Errorf("%w: negative count %d", ErrInvalidParam, t.Count)
		}
	case ByRankRange:
		if !t.ToEnd && t.Count < 0 {
			return fmt.Errorf("%w: negative count %d", ErrInvalidParam, t.Count)
		}
	}
	return nil
}

// normalizeSelector normalizes the values carried by value and key selectors.
func normalizeSelector(s Selector) (Selector, error) {
	var err error
	switch t := s.(type) {
	case ByValue:
		t.Value, err = Normalize(t.Value)
		return t, err
	case ByValueList:
		t.Values, err = normalizeList(t.Values)
		return t, err
	case ByValueRange:
		if t.Begin, err = Normalize(t.Begin); err != nil {
			return nil, err
		}
		t.End, err = Normalize(t.End)
		return t, err
	case ByKey:
		t.Key, err = Normalize(t.Key)
		return t, err
	case ByKeyList:
		t.Keys, err = normalizeList(t.Keys)
		return t, err
	case ByKeyRange:
		if t.Begin, err = Normalize(t.Begin); err != nil {
			return nil, err
		}
		t.End, err = Normalize(t.End)
		return t, err
	}
	return s, nil
}
