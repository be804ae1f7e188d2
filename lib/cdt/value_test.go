package cdt

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 5, int64(5)},
		{"uint8", uint8(200), int64(200)},
		{"float32", float32(1.5), 1.5},
		{"json int", json.Number("12"), int64(12)},
		{"json float", json.Number("1.25"), 1.25},
		{"typed slice", []string{"a", "b"}, []any{"a", "b"}},
		{"map sorted by key", map[string]any{"b": 1, "a": []int{2}}, Map{{"a", list(2)}, {"b", int64(1)}}},
		{"typed map", map[int]bool{2: true, 1: false}, Map{{int64(1), false}, {int64(2), true}}},
		{"ordered list sorted", OrderedList{3, 1}, OrderedList(list(1, 3))},
		{"duplicate map keys", Map{{"a", 1}, {"a", 2}}, Map{{"a", int64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}

	for _, bad := range []any{uint64(math.MaxUint64), math.NaN(), struct{}{}, make(chan int)} {
		if _, err := Normalize(bad); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("Normalize(%T) error = %v, want %v", bad, err, ErrUnsupportedValue)
		}
	}
}

func TestCompare(t *testing.T) {
	// each value is strictly smaller than the next one
	ascending := []any{
		nil, false, true,
		int64(-1), 0.5, int64(1), 1.0, 2.5,
		"", "a", "ab", "b",
		[]byte{}, []byte{0},
		[]any{}, list(1), list(1, 0), list(2),
		Map{}, Map{{"a", int64(1)}},
	}

	for i := range ascending {
		for j := range ascending {
			got := Compare(ascending[i], ascending[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%#v, %#v) = %d, want %d", ascending[i], ascending[j], got, want)
			}
		}
	}

	if !Equal(OrderedList(list(1, 2)), list(1, 2)) {
		t.Error("ordered and unordered lists with the same elements should be equal")
	}
}

func TestCompareLargeNumbers(t *testing.T) {
	const twoTo53 = 1 << 53
	tests := []struct {
		name string
		a, b any
		want int
	}{
		// 2^53+1 rounds to 2^53 as a float64
		{"int above float", int64(twoTo53 + 1), float64(twoTo53), 1},
		{"float below int", float64(twoTo53), int64(twoTo53 + 1), -1},
		{"equal int sorts first", int64(twoTo53), float64(twoTo53), -1},
		{"max int below 2^63", int64(math.MaxInt64), float64(math.MaxInt64), -1},
		{"min int equals -2^63", int64(math.MinInt64), float64(math.MinInt64), -1},
		{"min int above -Inf", int64(math.MinInt64), math.Inf(-1), 1},
		{"max int below +Inf", int64(math.MaxInt64), math.Inf(1), -1},
		{"negative fraction", int64(-2), -1.5, -1},
		{"positive fraction", int64(2), 1.5, 1},
		{"fraction above int", 2.5, int64(2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}
