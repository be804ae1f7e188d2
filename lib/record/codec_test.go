package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

func TestRecordCodec(t *testing.T) {
	rec := newTestRecord(t)
	rec.Generation = 7

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode("k1", data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("Decode() = %v, want %v", got, rec)
	}

	if _, err := Decode("k1", append([]byte{99}, data[1:]...)); !errors.Is(err, cdt.ErrMalformed) {
		t.Errorf("Decode() with bad version error = %v, want %v", err, cdt.ErrMalformed)
	}
	if _, err := Decode("k1", data[:len(data)-1]); !errors.Is(err, cdt.ErrMalformed) {
		t.Errorf("Decode() of truncated data error = %v, want %v", err, cdt.ErrMalformed)
	}
}

func TestOpsCodec(t *testing.T) {
	ctx := []cdt.CtxStep{
		cdt.CtxListIndex{Index: -1}, cdt.CtxListRank{Rank: 2}, cdt.CtxListValue{Value: "v"},
		cdt.CtxMapIndex{Index: 0}, cdt.CtxMapRank{Rank: -2}, cdt.CtxMapKey{Key: int64(3)}, cdt.CtxMapValue{Value: nil},
	}
	ops := []Operation{
		Get{Bin: "a"},
		Put{Bin: "a", Value: ints(1, 2)},
		ListAppend{Bin: "l", Ctx: ctx, Values: ints(4)},
		ListInsert{Bin: "l", Index: -3, Values: []any{"x"}},
		ListSize{Bin: "l"},
		ListClear{Bin: "l"},
		ListGetBy{Bin: "l", Selector: cdt.IndexRangeToEnd(-2), Return: cdt.ReturnReverseIndex, Inverted: true},
		ListRemoveBy{Bin: "l", Selector: cdt.RankRange(1, 3), Return: cdt.ReturnCount},
		ListGetBy{Bin: "l", Selector: cdt.ByRank{Rank: -1}, Return: cdt.ReturnRank},
		ListGetBy{Bin: "l", Selector: cdt.ByValueList{Values: ints(1, 2)}, Return: cdt.ReturnExists},
		ListGetBy{Bin: "l", Selector: cdt.ByValueRange{Begin: int64(5), End: nil}, Return: cdt.ReturnValue},
		ListSetOrder{Bin: "l", Order: cdt.Ordered},
		ListSort{Bin: "l", Flags: cdt.SortDropDuplicates},
		MapPut{Bin: "m", Key: "k", Value: 1.5},
		MapSize{Bin: "m"},
		MapClear{Bin: "m"},
		MapGetBy{Bin: "m", Selector: cdt.ByKeyList{Keys: []any{"a"}}, Return: cdt.ReturnKeyValue},
		MapRemoveBy{Bin: "m", Selector: cdt.ByKeyRange{Begin: "a", End: "c"}, Return: cdt.ReturnKey},
		MapGetBy{Bin: "m", Selector: cdt.ByKey{Key: "a"}, Return: cdt.ReturnValue},
		MapGetBy{Bin: "m", Selector: cdt.ByValue{Value: int64(1)}, Return: cdt.ReturnIndex},
		MapGetBy{Bin: "m", Selector: cdt.ByIndex{Index: 1}, Return: cdt.ReturnValue},
	}

	data, err := EncodeOps(ops)
	if err != nil {
		t.Fatalf("EncodeOps() error = %v", err)
	}
	got, err := DecodeOps(data)
	if err != nil {
		t.Fatalf("DecodeOps() error = %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("DecodeOps() returned %d operations, want %d", len(got), len(ops))
	}
	for i := range ops {
		if !reflect.DeepEqual(got[i], ops[i]) {
			t.Errorf("DecodeOps()[%d] = %#v, want %#v", i, got[i], ops[i])
		}
	}

	if _, err := DecodeOps(append(data, 0)); !errors.Is(err, cdt.ErrMalformed) {
		t.Errorf("DecodeOps() with trailing byte error = %v, want %v", err, cdt.ErrMalformed)
	}
}

func TestValuesCodec(t *testing.T) {
	values := []any{nil, int64(1), "two", ints(3), cdt.Map{{Key: "k", Value: true}}}
	data, err := EncodeValues(values)
	if err != nil {
		t.Fatalf("EncodeValues() error = %v", err)
	}
	got, err := DecodeValues(data)
	if err != nil {
		t.Fatalf("DecodeValues() error = %v", err)
	}
	if !reflect.DeepEqual(got, values) {
		t.Errorf("DecodeValues() = %#v, want %#v", got, values)
	}
}
