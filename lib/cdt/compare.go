package cdt

import (
	"bytes"
	"math"
	"strings"
)

// Compare defines the total order over normalized values and returns
// -1, 0 or +1. Values of different kinds are ordered by kind:
//
//	nil < bool < number < string < bytes < list < map
//
// Integers and floats are compared numerically. An integer and a float with
// the same numeric value are distinct, and the integer sorts first.
func Compare(a, b any) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return cmpInt(int64(ka), int64(kb))
	}

	switch ka {
	case KindNil:
		return 0
	case KindBool:
		return cmpBool(a.(bool), b.(bool))
	case KindNumber:
		return cmpNumber(a, b)
	case KindString:
		return strings.Compare(a.(string), b.(string))
	case KindBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	case KindList:
		return cmpList(listItems(a), listItems(b))
	default:
		return cmpMap(a.(Map), b.(Map))
	}
}

// Equal reports whether a and b are the same value under Compare.
func Equal(a, b any) bool {
	return Compare(a, b) == 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func cmpNumber(a, b any) int {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	switch {
	case aIsInt && bIsInt:
		return cmpInt(ai, bi)
	case aIsInt:
		if c := cmpIntFloat(ai, b.(float64)); c != 0 {
			return c
		}
		return -1
	case bIsInt:
		if c := cmpIntFloat(bi, a.(float64)); c != 0 {
			return -c
		}
		return 1
	}
	return cmpFloat(a.(float64), b.(float64))
}

// cmpIntFloat compares i and f exactly, without rounding i to a float64.
// f is never NaN.
func cmpIntFloat(i int64, f float64) int {
	switch {
	case f >= math.MaxInt64: // 2^63 and above, +Inf
		return -1
	case f < math.MinInt64: // below -2^63, -Inf
		return 1
	}
	whole := math.Trunc(f)
	if c := cmpInt(i, int64(whole)); c != 0 {
		return c
	}
	return cmpFloat(whole, f)
}

func cmpList(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(int64(len(a)), int64(len(b)))
}

func cmpMap(a, b Map) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i].Key, b[i].Key); c != 0 {
			return c
		}
		if c := Compare(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return cmpInt(int64(len(a)), int64(len(b)))
}

// listItems returns the elements of an ordered or unordered list.
func listItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case OrderedList:
		return t
	}
	return nil
}
