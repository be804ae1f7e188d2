package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

func TestParseOperations(t *testing.T) {
	input := `[
		{"op": "list_get_by", "bin": "l", "by": "index", "index": 2},
		{"op": "list_get_by", "bin": "l", "by": "index_range", "index": 2, "return": "reverse_rank"},
		{"op": "list_remove_by", "bin": "l", "by": "value_range", "begin": 5, "end": 8.5, "return": "count", "inverted": true},
		{"op": "map_get_by", "bin": "m", "ctx": [{"type": "map_key", "key": "inner"}], "by": "key_list", "keys": ["a", 1]},
		{"op": "list_append", "bin": "l", "values": [1, "x", [2]]},
		{"op": "list_sort", "bin": "l", "drop_duplicates": true},
		{"op": "list_set_order", "bin": "l", "order": "ordered"},
		{"op": "put", "bin": "p", "value": {"b": 1}}
	]`

	ops, err := ParseOperations([]byte(input))
	if err != nil {
		t.Fatalf("ParseOperations() error = %v", err)
	}

	want := []Operation{
		ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 2}, Return: cdt.ReturnValue},
		ListGetBy{Bin: "l", Selector: cdt.IndexRangeToEnd(2), Return: cdt.ReturnReverseRank},
		ListRemoveBy{Bin: "l", Selector: cdt.ByValueRange{Begin: int64(5), End: 8.5}, Return: cdt.ReturnCount, Inverted: true},
		MapGetBy{Bin: "m", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "inner"}}, Selector: cdt.ByKeyList{Keys: []any{"a", int64(1)}}, Return: cdt.ReturnValue},
		ListAppend{Bin: "l", Values: []any{int64(1), "x", ints(2)}},
		ListSort{Bin: "l", Flags: cdt.SortDropDuplicates},
		ListSetOrder{Bin: "l", Order: cdt.Ordered},
		Put{Bin: "p", Value: cdt.Map{{Key: "b", Value: int64(1)}}},
	}
	if len(ops) != len(want) {
		t.Fatalf("ParseOperations() returned %d operations, want %d", len(ops), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(ops[i], want[i]) {
			t.Errorf("ParseOperations()[%d] = %#v, want %#v", i, ops[i], want[i])
		}
	}
}

func TestParseOperationsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"unknown op", `[{"op": "explode", "bin": "a"}]`},
		{"unknown field", `[{"op": "get", "bin": "a", "colour": 1}]`},
		{"missing index", `[{"op": "list_get_by", "bin": "a", "by": "index"}]`},
		{"unknown selector", `[{"op": "list_get_by", "bin": "a", "by": "mood"}]`},
		{"unknown return", `[{"op": "list_get_by", "bin": "a", "by": "rank", "rank": 0, "return": "everything"}]`},
		{"unknown ctx", `[{"op": "list_size", "bin": "a", "ctx": [{"type": "deep"}]}]`},
		{"ctx on get", `[{"op": "get", "bin": "a", "ctx": [{"type": "list_index"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOperations([]byte(tt.input)); !errors.Is(err, cdt.ErrInvalidParam) {
				t.Errorf("ParseOperations() error = %v, want %v", err, cdt.ErrInvalidParam)
			}
		})
	}
}

func TestParseBins(t *testing.T) {
	bins, err := ParseBins([]byte(`{"l": [1, 2.5], "s": "x"}`))
	if err != nil {
		t.Fatalf("ParseBins() error = %v", err)
	}
	want := Bins{"l": []any{int64(1), 2.5}, "s": "x"}
	if !reflect.DeepEqual(bins, want) {
		t.Errorf("ParseBins() = %#v, want %#v", bins, want)
	}
}
