package astore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
)

func TestToClient(t *testing.T) {
	in := cdt.MustNormalize(map[string]any{
		"a": []any{1, cdt.OrderedList{int64(2)}},
		"b": "x",
	})
	got, err := toClient(in)
	if err != nil {
		t.Fatalf("toClient() error = %v", err)
	}
	want := map[any]any{
		"a": []any{int64(1), []any{int64(2)}},
		"b": "x",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toClient() = %#v, want %#v", got, want)
	}

	bad := cdt.Map{{Key: []any{int64(1)}, Value: int64(1)}}
	if _, err := toClient(bad); store.CodeOf(err) != store.RetCInvalidOperation {
		t.Errorf("toClient(list key) code = %s, want %s", store.CodeOf(err), store.RetCInvalidOperation)
	}
}

func TestFromClient(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 5, int64(5)},
		{"nil", nil, nil},
		{"list", []any{1, "a"}, []any{int64(1), "a"}},
		{"map", map[any]any{"b": 2, "a": 1}, cdt.Map{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}}},
		{"pairs", []as.MapPair{{Key: "b", Value: 2}, {Key: "a", Value: 1}}, cdt.Map{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromClient(tt.in)
			if err != nil {
				t.Fatalf("fromClient() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("fromClient() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTranslateOps(t *testing.T) {
	ops := []record.Operation{
		record.Get{Bin: "b"},
		record.Put{Bin: "b", Value: int64(1)},
		record.ListAppend{Bin: "l", Values: []any{int64(1)}},
		record.ListInsert{Bin: "l", Index: 0, Values: []any{int64(0)}},
		record.ListSize{Bin: "l"},
		record.ListClear{Bin: "l", Ctx: []cdt.CtxStep{cdt.CtxListIndex{Index: 0}}},
		record.ListSetOrder{Bin: "l", Order: cdt.Ordered},
		record.ListSort{Bin: "l", Flags: cdt.SortDropDuplicates},
		record.ListGetBy{Bin: "l", Selector: cdt.RankRange(0, 3), Return: cdt.ReturnValue},
		record.ListRemoveBy{Bin: "l", Selector: cdt.ByValueRange{Begin: int64(1)}, Return: cdt.ReturnCount, Inverted: true},
		record.MapPut{Bin: "m", Key: "k", Value: int64(1)},
		record.MapSize{Bin: "m"},
		record.MapGetBy{Bin: "m", Selector: cdt.ByKeyList{Keys: []any{"k"}}, Return: cdt.ReturnKeyValue},
		record.MapRemoveBy{Bin: "m", Selector: cdt.ByIndex{Index: -1}, Return: cdt.ReturnKey, Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "x"}}},
	}
	got, err := translateOps(ops)
	if err != nil {
		t.Fatalf("translateOps() error = %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("translateOps() returned %d operations, want %d", len(got), len(ops))
	}
	for i, op := range got {
		if op == nil {
			t.Errorf("operation %d (%v) = nil", i, ops[i])
		}
	}
}

func TestTranslateOpsErrors(t *testing.T) {
	tests := []struct {
		name string
		op   record.Operation
		want store.RetCode
	}{
		{"key selector on list", record.ListGetBy{Bin: "l", Selector: cdt.ByKey{Key: "a"}, Return: cdt.ReturnValue}, store.RetCInvalidOperation},
		{"key return type on list", record.ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 0}, Return: cdt.ReturnKey}, store.RetCInvalidOperation},
		{"negative count", record.ListGetBy{Bin: "l", Selector: cdt.IndexRange(0, -1), Return: cdt.ReturnValue}, store.RetCInvalidOperation},
		{"long bin name", record.Get{Bin: "a_bin_name_that_is_too_long"}, store.RetCInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := translateOps([]record.Operation{tt.op})
			if store.CodeOf(err) != tt.want {
				t.Errorf("translateOps() error = %v, want code %s", err, tt.want)
			}
		})
	}
}

func TestOpResults(t *testing.T) {
	ops := []record.Operation{
		record.ListAppend{Bin: "l", Values: []any{int64(1)}},
		record.Get{Bin: "s"},
		record.ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 0}, Return: cdt.ReturnValue},
	}
	rec := &as.Record{Bins: as.BinMap{
		"l": as.OpResults{1, 7},
		"s": "str",
	}}
	got, err := opResults(ops, rec)
	if err != nil {
		t.Fatalf("opResults() error = %v", err)
	}
	want := []any{int64(1), "str", int64(7)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("opResults() = %v, want %v", got, want)
	}
}

func TestOpResultsSkipsBinWrites(t *testing.T) {
	ops := []record.Operation{
		record.Put{Bin: "b", Value: int64(3)},
		record.Get{Bin: "b"},
		record.Put{Bin: "c", Value: "x"},
		record.Get{Bin: "b"},
	}
	rec := &as.Record{Bins: as.BinMap{
		"b": as.OpResults{3, 3},
	}}
	got, err := opResults(ops, rec)
	if err != nil {
		t.Fatalf("opResults() error = %v", err)
	}
	want := []any{nil, int64(3), nil, int64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("opResults() = %v, want %v", got, want)
	}

	// a single read after a write is returned as a plain bin
	got, err = opResults(ops[:2], &as.Record{Bins: as.BinMap{"b": 3}})
	if err != nil {
		t.Fatalf("opResults() error = %v", err)
	}
	if want := []any{nil, int64(3)}; !reflect.DeepEqual(got, want) {
		t.Errorf("opResults() = %v, want %v", got, want)
	}
}

func TestRetCode(t *testing.T) {
	tests := []struct {
		rc       types.ResultCode
		rankOnly bool
		want     store.RetCode
	}{
		{types.OK, false, store.RetCSuccess},
		{types.KEY_NOT_FOUND_ERROR, false, store.RetCRecordNotFound},
		{types.BIN_NOT_FOUND, false, store.RetCBinNotFound},
		{types.PARAMETER_ERROR, false, store.RetCInvalidOperation},
		{types.OP_NOT_APPLICABLE, false, store.RetCIndexOutOfRange},
		{types.OP_NOT_APPLICABLE, true, store.RetCRankOutOfRange},
		{types.BIN_TYPE_ERROR, false, store.RetCTypeMismatch},
		{types.ELEMENT_NOT_FOUND, false, store.RetCElementNotFound},
		{types.UDF_BAD_RESPONSE, false, store.RetCUDFError},
		{types.MAX_ERROR_RATE, false, store.RetCMaxErrorRate},
		{types.TIMEOUT, false, store.RetCTimeout},
		{types.SERVER_ERROR, false, store.RetCInternalError},
		{types.NETWORK_ERROR, false, store.RetCClientError},
	}
	for _, tt := range tests {
		t.Run(types.ResultCodeToString(tt.rc), func(t *testing.T) {
			if got := retCode(tt.rc, tt.rankOnly); got != tt.want {
				t.Errorf("retCode(%d, %v) = %s, want %s", tt.rc, tt.rankOnly, got, tt.want)
			}
		})
	}
}

func TestRankOnly(t *testing.T) {
	byRank := record.ListGetBy{Bin: "l", Selector: cdt.ByRank{Rank: 9}}
	byIndex := record.ListRemoveBy{Bin: "l", Selector: cdt.ByIndex{Index: 9}}

	if !rankOnly([]record.Operation{byRank}) {
		t.Errorf("rankOnly(rank) = false, want true")
	}
	if rankOnly([]record.Operation{byRank, byIndex}) {
		t.Errorf("rankOnly(rank, index) = true, want false")
	}
	if rankOnly([]record.Operation{record.Get{Bin: "b"}}) {
		t.Errorf("rankOnly(get) = true, want false")
	}
}

func TestTranslateError(t *testing.T) {
	if translateError(nil, nil) != nil {
		t.Errorf("translateError(nil) != nil")
	}
	se := store.NewError(store.RetCBinNotFound, "x")
	if got := translateError(se, nil); got != se {
		t.Errorf("translateError(store error) = %v, want %v", got, se)
	}
	if got := translateError(errors.New("boom"), nil); got.Code != store.RetCClientError {
		t.Errorf("translateError(plain) code = %s, want %s", got.Code, store.RetCClientError)
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		ttl     int64
		want    uint32
		wantErr bool
	}{
		{store.TTLDefault, as.TTLServerDefault, false},
		{store.TTLNeverExpire, as.TTLDontExpire, false},
		{store.TTLDontUpdate, as.TTLDontUpdate, false},
		{60, 60, false},
		{-3, 0, true},
	}
	for _, tt := range tests {
		got, err := expiration(tt.ttl)
		if (err != nil) != tt.wantErr {
			t.Errorf("expiration(%d) error = %v, wantErr %v", tt.ttl, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("expiration(%d) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
