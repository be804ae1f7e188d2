package cdt

import (
	"errors"
	"reflect"
	"testing"
)

func TestRemoveBy(t *testing.T) {
	tests := []struct {
		name        string
		c           any
		sel         Selector
		rt          ReturnType
		inverted    bool
		wantRemoved any
		wantRest    any
	}{
		{"index 2", base(), ByIndex{2}, ReturnValue, false, int64(5), list(7, 6, 8, 9, 10)},
		{"index range 2,2", base(), IndexRange(2, 2), ReturnValue, false, list(5, 8), list(7, 6, 9, 10)},
		{"index range 2,2 inverted", base(), IndexRange(2, 2), ReturnValue, true, list(7, 6, 9, 10), list(5, 8)},
		{"rank 2", base(), ByRank{2}, ReturnValue, false, int64(7), list(6, 5, 8, 9, 10)},
		{"rank range 0,3", base(), RankRange(0, 3), ReturnValue, false, list(5, 6, 7), list(8, 9, 10)},
		{"duplicate values", list(0, 1, 0, 2, 0), ByValue{0}, ReturnIndex, false, list(0, 2, 4), list(1, 2)},
		{"value list", base(), ByValueList{[]any{7, 10}}, ReturnCount, false, int64(2), list(6, 5, 8, 9)},
		{"value range no begin", base(), ByValueRange{nil, 8}, ReturnIndex, false, list(0, 1, 2), list(8, 9, 10)},
		{"value range no end", base(), ByValueRange{7, nil}, ReturnIndex, false, list(0, 3, 4, 5), list(6, 5)},
		{"nothing matched", base(), ByValue{42}, ReturnExists, false, false, base()},
		{"return none", base(), IndexRangeToEnd(3), ReturnNone, false, nil, list(7, 6, 5)},
		{"ordered list stays ordered", OrderedList(list(1, 2, 3, 4)), ByValue{2}, ReturnValue, false, list(2), OrderedList(list(1, 3, 4))},
		{
			"map by key", MustNormalize(map[string]any{"a": 1, "b": 2}), ByKey{"a"}, ReturnValue, false,
			int64(1), Map{{"b", int64(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, rest, err := RemoveBy(tt.c, tt.sel, tt.rt, tt.inverted)
			if err != nil {
				t.Fatalf("RemoveBy() error = %v", err)
			}
			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("RemoveBy() removed = %#v, want %#v", removed, tt.wantRemoved)
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("RemoveBy() rest = %#v, want %#v", rest, tt.wantRest)
			}
		})
	}
}

func TestRemoveByLeavesInputUntouched(t *testing.T) {
	l := base()

	if _, _, err := RemoveBy(l, ByIndex{10}, ReturnValue, false); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveBy() error = %v, want %v", err, ErrIndexOutOfRange)
	}
	if _, _, err := RemoveBy(l, IndexRange(0, 3), ReturnValue, false); err != nil {
		t.Fatalf("RemoveBy() error = %v", err)
	}
	if !reflect.DeepEqual(l, base()) {
		t.Errorf("RemoveBy() modified its input: %v", l)
	}
}

func TestSetOrderAndSort(t *testing.T) {
	ordered, err := SetOrder(base(), Ordered)
	if err != nil {
		t.Fatalf("SetOrder() error = %v", err)
	}
	if want := OrderedList(list(5, 6, 7, 8, 9, 10)); !reflect.DeepEqual(ordered, want) {
		t.Errorf("SetOrder(Ordered) = %v, want %v", ordered, want)
	}

	unordered, _ := SetOrder(ordered, Unordered)
	if _, ok := unordered.([]any); !ok {
		t.Errorf("SetOrder(Unordered) = %T, want []any", unordered)
	}

	tests := []struct {
		name  string
		in    any
		flags SortFlags
		want  any
	}{
		{"drop duplicates", list(2, 5, 2, 5), SortDropDuplicates, list(2, 5)},
		{"keep duplicates", list(2, 5, 2, 5), SortDefault, list(2, 2, 5, 5)},
		{"mixed kinds", []any{"b", int64(3), nil, 1.5, "a"}, SortDefault, []any{nil, 1.5, int64(3), "a", "b"}},
		{"ordered stays ordered", OrderedList(list(1, 1, 2)), SortDropDuplicates, OrderedList(list(1, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort(tt.in, tt.flags)
			if err != nil {
				t.Fatalf("Sort() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sort() = %#v, want %#v", got, tt.want)
			}
		})
	}

	if _, err := Sort(Map{}, SortDefault); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Sort(map) error = %v, want %v", err, ErrTypeMismatch)
	}
}

func TestAppendAndInsert(t *testing.T) {
	got, size, err := Append(nil, 1, 2)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !reflect.DeepEqual(got, list(1, 2)) || size != 2 {
		t.Errorf("Append(nil) = %v, %d, want [1 2], 2", got, size)
	}

	got, _, _ = Append(OrderedList(list(1, 3, 5)), 4, 0, 3)
	if want := OrderedList(list(0, 1, 3, 3, 4, 5)); !reflect.DeepEqual(got, want) {
		t.Errorf("Append(ordered) = %v, want %v", got, want)
	}

	tests := []struct {
		name    string
		index   int
		want    any
		wantErr error
	}{
		{"front", 0, list(0, 7, 6, 5, 8, 9, 10), nil},
		{"end", 6, list(7, 6, 5, 8, 9, 10, 0), nil},
		{"negative", -1, list(7, 6, 5, 8, 9, 0, 10), nil},
		{"past end", 7, nil, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Insert(base(), tt.index, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Insert() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Insert() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, _, err := Insert(OrderedList{}, 0, 1); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("Insert(ordered) error = %v, want %v", err, ErrInvalidParam)
	}
}

func TestPutSizeClear(t *testing.T) {
	m, size, err := Put(nil, "b", 2)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	m, _, _ = Put(m, "a", 1)
	m, size, _ = Put(m, "b", 3)

	if want := (Map{{"a", int64(1)}, {"b", int64(3)}}); !reflect.DeepEqual(m, want) || size != 2 {
		t.Errorf("Put() = %v, %d, want %v, 2", m, size, want)
	}

	if n, _ := Size(m); n != 2 {
		t.Errorf("Size() = %d, want 2", n)
	}
	cleared, _ := Clear(m)
	if n, _ := Size(cleared); n != 0 {
		t.Errorf("Size(Clear()) = %d, want 0", n)
	}
	if _, _, err := Put(base(), "a", 1); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Put(list) error = %v, want %v", err, ErrTypeMismatch)
	}
	if _, err := Size("text"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Size(string) error = %v, want %v", err, ErrTypeMismatch)
	}
}
