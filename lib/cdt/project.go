package cdt

import "fmt"

// --------------------------------------------------------------------------
// Return Types
// --------------------------------------------------------------------------

// ReturnType selects how the elements matched by a selector are rendered.
type ReturnType uint8

const (
	ReturnNone         ReturnType = iota // nothing, only useful for removals
	ReturnValue                          // the matched values
	ReturnIndex                          // the original indices
	ReturnReverseIndex                   // size-1-index
	ReturnRank                           // the ranks
	ReturnReverseRank                    // size-1-rank
	ReturnCount                          // number of matches as int64
	ReturnExists                         // true iff at least one element matched
	ReturnKey                            // map keys
	ReturnKeyValue                       // map entries as a Map in match order
)

func (rt ReturnType) String() string {
	switch rt {
	case ReturnNone:
		return "None"
	case ReturnValue:
		return "Value"
	case ReturnIndex:
		return "Index"
	case ReturnReverseIndex:
		return "ReverseIndex"
	case ReturnRank:
		return "Rank"
	case ReturnReverseRank:
		return "ReverseRank"
	case ReturnCount:
		return "Count"
	case ReturnExists:
		return "Exists"
	case ReturnKey:
		return "Key"
	case ReturnKeyValue:
		return "KeyValue"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(rt))
	}
}

// ParseReturnType returns the ReturnType with the given name (as printed by String).
func ParseReturnType(name string) (ReturnType, error) {
	for rt := ReturnNone; rt <= ReturnKeyValue; rt++ {
		if rt.String() == name {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown return type %q", ErrInvalidParam, name)
}

// --------------------------------------------------------------------------
// Projection
// --------------------------------------------------------------------------

// project renders the selected indices of v.
//
// Sequences are []any with int64 positions. With scalar set (a point selector
// that is not inverted) the single match is returned on its own; a point
// selector that matched nothing yields nil.
func (v *view) project(indices []int, rt ReturnType, scalar bool) (any, error) {
	n := v.size()

	var render func(i int) any
	switch rt {
	case ReturnNone:
		return nil, nil
	case ReturnCount:
		return int64(len(indices)), nil
	case ReturnExists:
		return len(indices) > 0, nil
	case ReturnValue:
		render = func(i int) any { return v.items[i] }
	case ReturnIndex:
		render = func(i int) any { return int64(i) }
	case ReturnReverseIndex:
		render = func(i int) any { return int64(n - 1 - i) }
	case ReturnRank:
		render = func(i int) any { return int64(v.rankOf(i)) }
	case ReturnReverseRank:
		render = func(i int) any { return int64(v.reverseRankOf(i)) }
	case ReturnKey:
		if !v.isMap {
			return nil, fmt.Errorf("%w: return type Key requires a map", ErrInvalidParam)
		}
		render = func(i int) any { return v.keys[i] }
	case ReturnKeyValue:
		if !v.isMap {
			return nil, fmt.Errorf("%w: return type KeyValue requires a map", ErrInvalidParam)
		}
		entries := make(Map, len(indices))
		for j, i := range indices {
			entries[j] = MapEntry{Key: v.keys[i], Value: v.items[i]}
		}
		if scalar && len(entries) == 0 {
			return nil, nil
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: unknown return type %d", ErrInvalidParam, rt)
	}

	if scalar {
		if len(indices) == 0 {
			return nil, nil
		}
		return render(indices[0]), nil
	}
	out := make([]any, len(indices))
	for j, i := range indices {
		out[j] = render(i)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// GetBy evaluates sel against the list or map c and renders the matches as rt.
//
// The result is a scalar for ByIndex, ByRank and ByKey when not inverted and a
// []any sequence otherwise. ReturnCount yields an int64 and ReturnExists a
// bool for every selector. c is never modified.
func GetBy(c any, sel Selector, rt ReturnType, inverted bool) (any, error) {
	v, err := newView(c)
	if err != nil {
		return nil, err
	}
	indices, err := v.evaluate(sel, inverted)
	if err != nil {
		return nil, err
	}
	return v.project(indices, rt, isPoint(sel) && !inverted)
}
