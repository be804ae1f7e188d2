package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

func ints(xs ...int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	rec, err := New("k1", Bins{
		"list":  []int{7, 6, 5, 8, 9, 10},
		"m":     map[string]int{"a": 1, "b": 2},
		"count": 3,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec.Generation = 1
	return rec
}

func TestOperateReads(t *testing.T) {
	rec := newTestRecord(t)

	out, results, err := Operate("k1", rec, []Operation{
		ListGetBy{Bin: "list", Selector: cdt.ByIndex{Index: 2}, Return: cdt.ReturnValue},
		ListGetBy{Bin: "list", Selector: cdt.ByIndex{Index: 2}, Return: cdt.ReturnReverseRank},
		ListGetBy{Bin: "list", Selector: cdt.ByValue{Value: 7}, Return: cdt.ReturnIndex},
		ListSize{Bin: "list"},
		MapGetBy{Bin: "m", Selector: cdt.ByKey{Key: "b"}, Return: cdt.ReturnValue},
		Get{Bin: "count"},
		Get{Bin: "missing"},
	})
	if err != nil {
		t.Fatalf("Operate() error = %v", err)
	}
	want := []any{int64(5), int64(5), ints(0), int64(6), int64(2), int64(3), nil}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Operate() results = %#v, want %#v", results, want)
	}
	if out != rec {
		t.Error("read only Operate() should return the input record")
	}
	if rec.Generation != 1 {
		t.Errorf("read only Operate() changed generation to %d", rec.Generation)
	}
}

func TestOperateWrites(t *testing.T) {
	rec := newTestRecord(t)

	out, results, err := Operate("k1", rec, []Operation{
		ListRemoveBy{Bin: "list", Selector: cdt.IndexRange(2, 2), Return: cdt.ReturnValue},
		ListAppend{Bin: "list", Values: []any{1}},
		ListSetOrder{Bin: "sorted", Order: cdt.Ordered},
		ListAppend{Bin: "sorted", Values: []any{3, 1, 2}},
		MapPut{Bin: "m", Key: "c", Value: 3},
		Put{Bin: "count"},
		ListGetBy{Bin: "list", Selector: cdt.IndexRangeToEnd(0), Return: cdt.ReturnValue},
	})
	if err != nil {
		t.Fatalf("Operate() error = %v", err)
	}

	wantResults := []any{ints(5, 8), int64(5), nil, int64(3), int64(3), nil, ints(7, 6, 9, 10, 1)}
	if !reflect.DeepEqual(results, wantResults) {
		t.Errorf("Operate() results = %#v, want %#v", results, wantResults)
	}
	if got := out.Bins["sorted"]; !reflect.DeepEqual(got, cdt.OrderedList(ints(1, 2, 3))) {
		t.Errorf("sorted bin = %#v", got)
	}
	if _, ok := out.Bins["count"]; ok {
		t.Error("put with nil value should remove the bin")
	}
	if out.Generation != 2 {
		t.Errorf("generation = %d, want 2", out.Generation)
	}
	if !reflect.DeepEqual(rec.Bins["list"], ints(7, 6, 5, 8, 9, 10)) {
		t.Errorf("Operate() modified the input record: %v", rec.Bins["list"])
	}
}

func TestOperateIsAtomic(t *testing.T) {
	rec := newTestRecord(t)

	out, _, err := Operate("k1", rec, []Operation{
		ListRemoveBy{Bin: "list", Selector: cdt.ByValue{Value: 7}, Return: cdt.ReturnNone},
		ListGetBy{Bin: "list", Selector: cdt.ByIndex{Index: 42}, Return: cdt.ReturnValue},
	})
	if !errors.Is(err, cdt.ErrIndexOutOfRange) {
		t.Fatalf("Operate() error = %v, want %v", err, cdt.ErrIndexOutOfRange)
	}
	if out != nil {
		t.Errorf("failed Operate() returned a record: %v", out)
	}
	if !reflect.DeepEqual(rec.Bins["list"], ints(7, 6, 5, 8, 9, 10)) {
		t.Errorf("failed Operate() left partial changes: %v", rec.Bins["list"])
	}
}

func TestOperateErrors(t *testing.T) {
	tests := []struct {
		name    string
		rec     *Record
		ops     []Operation
		wantErr error
	}{
		{"no ops", nil, nil, cdt.ErrInvalidParam},
		{"nil op", nil, []Operation{nil}, cdt.ErrInvalidParam},
		{"read on missing record", nil, []Operation{Get{Bin: "a"}}, ErrRecordNotFound},
		{"selector on missing bin", newTestRecord(t), []Operation{ListGetBy{Bin: "nope", Selector: cdt.ByIndex{}, Return: cdt.ReturnValue}}, ErrBinNotFound},
		{"remove on missing bin", newTestRecord(t), []Operation{ListRemoveBy{Bin: "nope", Selector: cdt.ByIndex{}}}, ErrBinNotFound},
		{"list op on map", newTestRecord(t), []Operation{ListSize{Bin: "m"}}, cdt.ErrTypeMismatch},
		{"map op on list", newTestRecord(t), []Operation{MapGetBy{Bin: "list", Selector: cdt.ByKey{Key: "a"}, Return: cdt.ReturnValue}}, cdt.ErrTypeMismatch},
		{"append to integer", newTestRecord(t), []Operation{ListAppend{Bin: "count", Values: []any{1}}}, cdt.ErrTypeMismatch},
		{"rank out of range", newTestRecord(t), []Operation{ListGetBy{Bin: "list", Selector: cdt.ByRank{Rank: 6}, Return: cdt.ReturnValue}}, cdt.ErrRankOutOfRange},
		{"bin name too long", newTestRecord(t), []Operation{Get{Bin: "a-very-long-bin-name"}}, cdt.ErrInvalidParam},
		{"ctx on missing bin", newTestRecord(t), []Operation{ListAppend{Bin: "nope", Ctx: []cdt.CtxStep{cdt.CtxListIndex{}}}}, ErrBinNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Operate("k1", tt.rec, tt.ops)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Operate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOperateCreatesAndDeletes(t *testing.T) {
	out, results, err := Operate("new", nil, []Operation{ListAppend{Bin: "l", Values: []any{1, 2}}})
	if err != nil {
		t.Fatalf("Operate() error = %v", err)
	}
	if out == nil || out.Key != "new" || out.Generation != 1 {
		t.Fatalf("Operate() created %v", out)
	}
	if results[0] != int64(2) {
		t.Errorf("append result = %v, want 2", results[0])
	}

	out, _, err = Operate("new", out, []Operation{Put{Bin: "l"}})
	if err != nil {
		t.Fatalf("Operate() error = %v", err)
	}
	if out != nil {
		t.Errorf("removing the last bin should delete the record, got %v", out)
	}
}

func TestOperateWithContext(t *testing.T) {
	rec, _ := New("k", Bins{"doc": map[string]any{"tags": []any{"b", "a", "c"}}})

	out, results, err := Operate("k", rec, []Operation{
		ListSort{Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "tags"}}},
		ListGetBy{Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "tags"}}, Selector: cdt.ByIndex{Index: 0}, Return: cdt.ReturnValue},
		MapSize{Bin: "doc"},
	})
	if err != nil {
		t.Fatalf("Operate() error = %v", err)
	}
	if !reflect.DeepEqual(results, []any{nil, "a", int64(1)}) {
		t.Errorf("Operate() results = %#v", results)
	}
	tags, _ := cdt.Lookup(out.Bins["doc"], []cdt.CtxStep{cdt.CtxMapKey{Key: "tags"}})
	if !reflect.DeepEqual(tags, []any{"a", "b", "c"}) {
		t.Errorf("tags = %v", tags)
	}
}
