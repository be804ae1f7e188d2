package cdt

import (
	"errors"
	"reflect"
	"testing"
)

func nested() any {
	return MustNormalize(map[string]any{
		"scores": []any{3, 1, 2},
		"groups": []any{
			[]any{"x", "y"},
			map[string]any{"k": []any{10, 20}},
		},
	})
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		path    []CtxStep
		want    any
		wantErr error
	}{
		{"empty path", nil, nested(), nil},
		{"map key", []CtxStep{CtxMapKey{"scores"}}, list(3, 1, 2), nil},
		{"map index", []CtxStep{CtxMapIndex{0}}, []any{[]any{"x", "y"}, Map{{"k", list(10, 20)}}}, nil},
		{"list index", []CtxStep{CtxMapKey{"groups"}, CtxListIndex{0}}, []any{"x", "y"}, nil},
		{"list rank", []CtxStep{CtxMapKey{"groups"}, CtxListRank{-1}, CtxMapKey{"k"}}, list(10, 20), nil},
		{"list value", []CtxStep{CtxMapKey{"groups"}, CtxListValue{[]any{"x", "y"}}}, []any{"x", "y"}, nil},
		{"map value", []CtxStep{CtxMapValue{[]any{3, 1, 2}}}, list(3, 1, 2), nil},
		{"map rank", []CtxStep{CtxMapRank{0}}, list(3, 1, 2), nil},
		{"missing key", []CtxStep{CtxMapKey{"nope"}}, nil, ErrElementNotFound},
		{"index out of range", []CtxStep{CtxMapKey{"scores"}, CtxListIndex{3}}, nil, ErrIndexOutOfRange},
		{"list step on map", []CtxStep{CtxListIndex{0}}, nil, ErrTypeMismatch},
		{"map step on list", []CtxStep{CtxMapKey{"scores"}, CtxMapKey{"a"}}, nil, ErrTypeMismatch},
		{"step into scalar", []CtxStep{CtxMapKey{"scores"}, CtxListIndex{0}, CtxListIndex{0}}, nil, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(nested(), tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup(%s) error = %v, want %v", PathString(tt.path), err, tt.wantErr)
			}
			if tt.wantErr == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%s) = %#v, want %#v", PathString(tt.path), got, tt.want)
			}
		})
	}
}

func TestModify(t *testing.T) {
	root := nested()
	path := []CtxStep{CtxMapKey{"groups"}, CtxListIndex{1}, CtxMapKey{"k"}}

	var removed any
	out, err := Modify(root, path, func(cur any) (any, error) {
		var rest any
		var err error
		removed, rest, err = RemoveBy(cur, ByValue{10}, ReturnCount, false)
		return rest, err
	})
	if err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	if removed != int64(1) {
		t.Errorf("removed = %v, want 1", removed)
	}

	got, _ := Lookup(out, path)
	if !reflect.DeepEqual(got, list(20)) {
		t.Errorf("Lookup() after Modify() = %v, want [20]", got)
	}
	if !reflect.DeepEqual(root, nested()) {
		t.Errorf("Modify() changed its input: %v", root)
	}

	_, err = Modify(root, path, func(any) (any, error) { return nil, ErrInvalidParam })
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("Modify() error = %v, want %v", err, ErrInvalidParam)
	}
}

func TestModifyResortsOrderedParent(t *testing.T) {
	root := OrderedList{list(1), list(5)}
	out, err := Modify(root, []CtxStep{CtxListIndex{0}}, func(cur any) (any, error) {
		l, _, err := Append(cur, 9)
		return l, err
	})
	if err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	want := OrderedList{list(1, 9), list(5)}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Modify() = %v, want %v", out, want)
	}

	out, _ = Modify(root, []CtxStep{CtxListIndex{0}}, func(any) (any, error) { return list(7), nil })
	want = OrderedList{list(5), list(7)}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Modify() = %v, want %v", out, want)
	}
}
