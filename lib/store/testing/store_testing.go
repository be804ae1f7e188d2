package testing

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// StoreFactory creates a new, empty store.
type StoreFactory func() store.IStore

// Option disables parts of the suite a store can't support.
type Option func(*options)

type options struct {
	logicalTTL bool
	udf        bool
}

// WithoutLogicalTTL skips the tests that expect the TTL to count writes.
func WithoutLogicalTTL() Option {
	return func(o *options) { o.logicalTTL = false }
}

// WithoutUDF skips the tests that run UDFs registered in this process.
func WithoutUDF() Option {
	return func(o *options) { o.udf = false }
}

// UDFModule is the module of the UDFs registered by the suite.
const UDFModule = "dcdt_test"

func init() {
	// incr adds args[0] to the integer bin "n" and returns the new value
	record.RegisterUDF(UDFModule, "incr", func(rec *record.Record, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: incr takes one argument", cdt.ErrInvalidParam)
		}
		delta, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: incr argument must be an integer", cdt.ErrInvalidParam)
		}
		n, _ := rec.Bins["n"].(int64)
		rec.Bins["n"] = n + delta
		return n + delta, nil
	})
}

// RunStoreTests runs the conformance suite for a store.IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory, opts ...Option) {
	o := options{logicalTTL: true, udf: true}
	for _, opt := range opts {
		opt(&o)
	}

	t.Run(name, func(t *testing.T) {
		t.Run("PutGet", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("ExistsRemove", func(t *testing.T) {
			testExistsRemove(t, factory())
		})

		t.Run("ListProperties", func(t *testing.T) {
			testListProperties(t, factory())
		})

		t.Run("RemoveBy", func(t *testing.T) {
			testRemoveBy(t, factory())
		})

		t.Run("SortAndOrder", func(t *testing.T) {
			testSortAndOrder(t, factory())
		})

		t.Run("MapOperations", func(t *testing.T) {
			testMapOperations(t, factory())
		})

		t.Run("NestedContext", func(t *testing.T) {
			testNestedContext(t, factory())
		})

		t.Run("Errors", func(t *testing.T) {
			testErrors(t, factory())
		})

		t.Run("Atomicity", func(t *testing.T) {
			testAtomicity(t, factory())
		})

		t.Run("ConcurrentOperate", func(t *testing.T) {
			testConcurrentOperate(t, factory())
		})

		t.Run("Batch", func(t *testing.T) {
			testBatch(t, factory(), o.udf)
		})

		if o.logicalTTL {
			t.Run("TTL", func(t *testing.T) {
				testTTL(t, factory())
			})
		}

		if o.udf {
			t.Run("UDF", func(t *testing.T) {
				testUDF(t, factory())
			})
		}
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func ints(xs ...int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

// base is the list used by the list tests; ranks of 5..10 are 0..5.
func base() []any {
	return ints(7, 6, 5, 8, 9, 10)
}

func mustPut(t *testing.T, s store.IStore, key string, bins record.Bins) {
	t.Helper()
	if err := s.Put(key, bins, store.TTLDefault); err != nil {
		t.Fatalf("Put(%q) error = %v", key, err)
	}
}

func mustOperate(t *testing.T, s store.IStore, key string, ops ...record.Operation) []any {
	t.Helper()
	results, err := s.Operate(key, ops)
	if err != nil {
		t.Fatalf("Operate(%q, %v) error = %v", key, ops, err)
	}
	return results
}

func expectCode(t *testing.T, err error, want store.RetCode) {
	t.Helper()
	if got := store.CodeOf(err); got != want {
		t.Errorf("error code = %s (%v), want %s", got, err, want)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"name": "alice", "age": 30, "tags": []string{"a", "b"}})

	rec, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := record.Bins{"name": "alice", "age": int64(30), "tags": []any{"a", "b"}}
	if !reflect.DeepEqual(rec.Bins, want) {
		t.Errorf("Get() bins = %v, want %v", rec.Bins, want)
	}
	if rec.Generation != 1 {
		t.Errorf("Get() generation = %d, want 1", rec.Generation)
	}

	// bins are merged, nil removes a bin
	mustPut(t, s, "k", record.Bins{"age": 31, "tags": nil})
	rec, err = s.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want = record.Bins{"name": "alice", "age": int64(31)}
	if !reflect.DeepEqual(rec.Bins, want) {
		t.Errorf("Get() after merge = %v, want %v", rec.Bins, want)
	}
	if rec.Generation != 2 {
		t.Errorf("Get() generation = %d, want 2", rec.Generation)
	}

	_, err = s.Get("missing")
	expectCode(t, err, store.RetCRecordNotFound)
	if !errors.Is(err, record.ErrRecordNotFound) {
		t.Errorf("errors.Is(%v, ErrRecordNotFound) = false", err)
	}

	// invalid bin names
	expectCode(t, s.Put("k", record.Bins{"": 1}, store.TTLDefault), store.RetCInvalidOperation)
	expectCode(t, s.Put("k", record.Bins{"a-very-long-bin-name": 1}, store.TTLDefault), store.RetCInvalidOperation)
}

func testExistsRemove(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"a": 1})

	if ok, err := s.Exists("k"); err != nil || !ok {
		t.Errorf("Exists(k) = %v, %v, want true, nil", ok, err)
	}
	if err := s.Remove("k"); err != nil {
		t.Fatalf("Remove(k) error = %v", err)
	}
	if ok, err := s.Exists("k"); err != nil || ok {
		t.Errorf("Exists(k) after Remove = %v, %v, want false, nil", ok, err)
	}
	expectCode(t, s.Remove("k"), store.RetCRecordNotFound)

	// removing the last bin removes the record
	mustPut(t, s, "k", record.Bins{"a": 1})
	mustPut(t, s, "k", record.Bins{"a": nil})
	if ok, _ := s.Exists("k"); ok {
		t.Errorf("Exists(k) after removing the last bin = true, want false")
	}
}

func testListProperties(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"l": base()})

	tests := []struct {
		name     string
		sel      cdt.Selector
		rt       cdt.ReturnType
		inverted bool
		want     any
	}{
		{"index 2 value", cdt.ByIndex{Index: 2}, cdt.ReturnValue, false, int64(5)},
		{"index -2 value", cdt.ByIndex{Index: -2}, cdt.ReturnValue, false, int64(9)},
		{"index 2 index", cdt.ByIndex{Index: 2}, cdt.ReturnIndex, false, int64(2)},
		{"index 2 reverse index", cdt.ByIndex{Index: 2}, cdt.ReturnReverseIndex, false, int64(3)},
		{"index 2 rank", cdt.ByIndex{Index: 2}, cdt.ReturnRank, false, int64(0)},
		{"index 2 reverse rank", cdt.ByIndex{Index: 2}, cdt.ReturnReverseRank, false, int64(5)},
		{"index range 0,3", cdt.IndexRange(0, 3), cdt.ReturnValue, false, ints(7, 6, 5)},
		{"index range -2,1", cdt.IndexRange(-2, 1), cdt.ReturnValue, false, ints(9)},
		{"index range clipped", cdt.IndexRange(0, 100), cdt.ReturnValue, false, base()},
		{"index range to end", cdt.IndexRangeToEnd(2), cdt.ReturnValue, false, ints(5, 8, 9, 10)},
		{"index range inverted", cdt.IndexRange(0, 3), cdt.ReturnValue, true, ints(8, 9, 10)},
		{"value 7 index", cdt.ByValue{Value: 7}, cdt.ReturnIndex, false, ints(0)},
		{"value 7 inverted", cdt.ByValue{Value: 7}, cdt.ReturnValue, true, ints(6, 5, 8, 9, 10)},
		{"value range 5..8", cdt.ByValueRange{Begin: 5, End: 8}, cdt.ReturnIndex, false, ints(0, 1, 2)},
		{"rank range 0,3", cdt.RankRange(0, 3), cdt.ReturnValue, false, ints(5, 6, 7)},
		{"count", cdt.IndexRange(0, 3), cdt.ReturnCount, false, int64(3)},
		{"exists", cdt.ByValue{Value: 42}, cdt.ReturnExists, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := mustOperate(t, s, "k", record.ListGetBy{Bin: "l", Selector: tt.sel, Return: tt.rt, Inverted: tt.inverted})
			got := results[0]
			// value range matches are compared as a set
			if _, ok := tt.sel.(cdt.ByValueRange); ok {
				if list, ok := got.([]any); ok {
					sort.Slice(list, func(i, j int) bool { return list[i].(int64) < list[j].(int64) })
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ListGetBy(%v) = %#v, want %#v", tt.sel, got, tt.want)
			}
		})
	}

	// reads don't change the record
	rec, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(rec.Bins["l"], base()) || rec.Generation != 1 {
		t.Errorf("record after reads = %v (gen %d), want unchanged", rec.Bins["l"], rec.Generation)
	}
}

func testRemoveBy(t *testing.T, s store.IStore) {
	mustPut(t, s, "dups", record.Bins{"l": ints(0, 1, 0, 2, 0)})
	results := mustOperate(t, s, "dups",
		record.ListRemoveBy{Bin: "l", Selector: cdt.ByValue{Value: 0}, Return: cdt.ReturnIndex},
		record.Get{Bin: "l"},
	)
	if !reflect.DeepEqual(results[0], ints(0, 2, 4)) {
		t.Errorf("removed = %v, want [0 2 4]", results[0])
	}
	if !reflect.DeepEqual(results[1], ints(1, 2)) {
		t.Errorf("remaining = %v, want [1 2]", results[1])
	}

	mustPut(t, s, "base", record.Bins{"l": base()})
	results = mustOperate(t, s, "base",
		record.ListRemoveBy{Bin: "l", Selector: cdt.IndexRange(2, 2), Return: cdt.ReturnValue},
		record.Get{Bin: "l"},
	)
	if !reflect.DeepEqual(results[0], ints(5, 8)) {
		t.Errorf("removed = %v, want [5 8]", results[0])
	}
	if !reflect.DeepEqual(results[1], ints(7, 6, 9, 10)) {
		t.Errorf("remaining = %v, want [7 6 9 10]", results[1])
	}

	// removal by rank range returns rank order
	mustPut(t, s, "rank", record.Bins{"l": base()})
	results = mustOperate(t, s, "rank",
		record.ListRemoveBy{Bin: "l", Selector: cdt.RankRange(0, 3), Return: cdt.ReturnValue},
		record.ListSize{Bin: "l"},
	)
	if !reflect.DeepEqual(results[0], ints(5, 6, 7)) {
		t.Errorf("removed by rank = %v, want [5 6 7]", results[0])
	}
	if results[1] != int64(3) {
		t.Errorf("size after removal = %v, want 3", results[1])
	}

	rec, _ := s.Get("rank")
	if rec.Generation != 2 {
		t.Errorf("generation after write = %d, want 2", rec.Generation)
	}
}

func testSortAndOrder(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"dups": ints(2, 5, 2, 5), "l": base()})

	results := mustOperate(t, s, "k",
		record.ListSort{Bin: "dups", Flags: cdt.SortDropDuplicates},
		record.Get{Bin: "dups"},
		record.ListSetOrder{Bin: "l", Order: cdt.Ordered},
		record.ListGetBy{Bin: "l", Selector: cdt.IndexRangeToEnd(0), Return: cdt.ReturnValue},
		record.ListAppend{Bin: "l", Values: []any{1, 100}},
		record.ListGetBy{Bin: "l", Selector: cdt.IndexRange(0, 2), Return: cdt.ReturnValue},
	)

	if !reflect.DeepEqual(results[1], ints(2, 5)) {
		t.Errorf("sorted without duplicates = %v, want [2 5]", results[1])
	}
	if !reflect.DeepEqual(results[3], ints(5, 6, 7, 8, 9, 10)) {
		t.Errorf("ordered list = %v, want [5 6 7 8 9 10]", results[3])
	}
	if results[4] != int64(8) {
		t.Errorf("append size = %v, want 8", results[4])
	}
	if !reflect.DeepEqual(results[5], ints(1, 5)) {
		t.Errorf("ordered list head = %v, want [1 5]", results[5])
	}
}

func testMapOperations(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"m": map[string]any{"a": 3, "b": 1, "c": 2}})

	results := mustOperate(t, s, "k",
		record.MapGetBy{Bin: "m", Selector: cdt.ByKey{Key: "b"}, Return: cdt.ReturnValue},
		record.MapGetBy{Bin: "m", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnKey},
		record.MapGetBy{Bin: "m", Selector: cdt.ByValueRange{Begin: 2, End: nil}, Return: cdt.ReturnKey},
		record.MapPut{Bin: "m", Key: "d", Value: 0},
		record.MapRemoveBy{Bin: "m", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnKeyValue},
		record.MapSize{Bin: "m"},
	)

	want := []any{
		int64(1),
		"b",
		[]any{"a", "c"},
		int64(4),
		cdt.Map{{Key: "d", Value: int64(0)}},
		int64(3),
	}
	for i := range want {
		if !reflect.DeepEqual(results[i], want[i]) {
			t.Errorf("result %d = %#v, want %#v", i, results[i], want[i])
		}
	}
}

func testNestedContext(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"doc": map[string]any{
		"scores": []any{3, 1, 2},
		"groups": []any{[]any{10, 20}, []any{30}},
	}})

	results := mustOperate(t, s, "k",
		record.ListGetBy{
			Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "scores"}},
			Selector: cdt.ByRank{Rank: -1}, Return: cdt.ReturnValue,
		},
		record.ListAppend{
			Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "groups"}, cdt.CtxListIndex{Index: 1}},
			Values: []any{40},
		},
		record.ListGetBy{
			Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "groups"}, cdt.CtxListIndex{Index: -1}},
			Selector: cdt.IndexRangeToEnd(0), Return: cdt.ReturnValue,
		},
	)
	if results[0] != int64(3) {
		t.Errorf("max score = %v, want 3", results[0])
	}
	if results[1] != int64(2) {
		t.Errorf("nested append size = %v, want 2", results[1])
	}
	if !reflect.DeepEqual(results[2], ints(30, 40)) {
		t.Errorf("nested list = %v, want [30 40]", results[2])
	}

	_, err := s.Operate("k", []record.Operation{record.ListSize{Bin: "doc", Ctx: []cdt.CtxStep{cdt.CtxMapKey{Key: "missing"}}}})
	expectCode(t, err, store.RetCElementNotFound)
}

func testErrors(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"l": base(), "s": "text"})

	tests := []struct {
		name string
		key  string
		ops  []record.Operation
		want store.RetCode
	}{
		{"missing record", "missing", []record.Operation{record.ListSize{Bin: "l"}}, store.RetCRecordNotFound},
		{"missing bin", "k", []record.Operation{record.ListSize{Bin: "nope"}}, store.RetCBinNotFound},
		{"index out of range", "k", []record.Operation{record.ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 6}, Return: cdt.ReturnValue}}, store.RetCIndexOutOfRange},
		{"rank out of range", "k", []record.Operation{record.ListGetBy{Bin: "l", Selector: cdt.ByRank{Rank: -7}, Return: cdt.ReturnValue}}, store.RetCRankOutOfRange},
		{"type mismatch", "k", []record.Operation{record.ListSize{Bin: "s"}}, store.RetCTypeMismatch},
		{"negative count", "k", []record.Operation{record.ListGetBy{Bin: "l", Selector: cdt.IndexRange(0, -1), Return: cdt.ReturnValue}}, store.RetCInvalidOperation},
		{"no operations", "k", nil, store.RetCInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Operate(tt.key, tt.ops)
			if err == nil {
				t.Fatalf("Operate() succeeded, want %s", tt.want)
			}
			expectCode(t, err, tt.want)
			if store.IsClientError(err) {
				t.Errorf("IsClientError(%v) = true, want false", err)
			}
		})
	}
}

func testAtomicity(t *testing.T, s store.IStore) {
	mustPut(t, s, "k", record.Bins{"l": base()})

	// the append succeeds, the second op fails: nothing is written
	_, err := s.Operate("k", []record.Operation{
		record.ListAppend{Bin: "l", Values: []any{11}},
		record.ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 100}, Return: cdt.ReturnValue},
	})
	expectCode(t, err, store.RetCIndexOutOfRange)

	rec, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(rec.Bins["l"], base()) || rec.Generation != 1 {
		t.Errorf("record after failed operate = %v (gen %d), want unchanged", rec.Bins["l"], rec.Generation)
	}

	// a failing write on a missing record does not create it
	_, err = s.Operate("new", []record.Operation{
		record.ListAppend{Bin: "l", Values: []any{1}},
		record.ListSize{Bin: "other"},
	})
	expectCode(t, err, store.RetCBinNotFound)
	if ok, _ := s.Exists("new"); ok {
		t.Errorf("Exists(new) = true after a failed operate")
	}
}

// testConcurrentOperate races appends to one record. Every call must report
// its own result and every value must be stored exactly once.
func testConcurrentOperate(t *testing.T, s store.IStore) {
	const (
		workers = 64
		appends = 50
	)

	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			<-start
			for i := 0; i < appends; i++ {
				results, err := s.Operate("k", []record.Operation{record.ListAppend{Bin: "l", Values: []any{w*appends + i}}})
				if err != nil {
					t.Errorf("Operate() error = %v", err)
					return
				}
				if len(results) != 1 {
					t.Errorf("Operate() results = %v, want the new list size", results)
					return
				}
				if size, ok := results[0].(int64); !ok || size < 1 || size > workers*appends {
					t.Errorf("Operate() result = %v, want a size in [1, %d]", results[0], workers*appends)
				}
			}
		}(w)
	}
	close(start)
	wg.Wait()

	rec, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	list, ok := rec.Bins["l"].([]any)
	if !ok {
		t.Fatalf("bin l = %T, want a list", rec.Bins["l"])
	}
	if len(list) != workers*appends {
		t.Errorf("list size = %d, want %d", len(list), workers*appends)
	}
	seen := make(map[int64]bool, len(list))
	for _, v := range list {
		n := v.(int64)
		if seen[n] {
			t.Errorf("value %d stored twice", n)
		}
		seen[n] = true
	}
	if rec.Generation != uint32(workers*appends) {
		t.Errorf("Generation = %d, want %d", rec.Generation, workers*appends)
	}
}

func testBatch(t *testing.T, s store.IStore, udf bool) {
	mustPut(t, s, "a", record.Bins{"l": base()})
	mustPut(t, s, "b", record.Bins{"s": "text"})

	records := []*store.BatchRecord{
		store.NewBatchRead("a"),
		store.NewBatchRead("a", record.ListGetBy{Bin: "l", Selector: cdt.ByIndex{Index: 0}, Return: cdt.ReturnValue}),
		store.NewBatchWrite("a", record.ListRemoveBy{Bin: "l", Selector: cdt.RankRange(0, 3), Return: cdt.ReturnValue}),
		store.NewBatchWrite("b", record.ListSize{Bin: "s"}, record.Put{Bin: "x", Value: 1}),
		store.NewBatchRead("missing"),
		store.NewBatchRemove("b"),
	}
	if err := s.BatchOperate(records); err != nil {
		t.Fatalf("BatchOperate() error = %v", err)
	}

	tests := []struct {
		name    string
		index   int
		code    store.RetCode
		results []any
	}{
		{"read record", 0, store.RetCSuccess, nil},
		{"read with ops", 1, store.RetCSuccess, []any{int64(7)}},
		{"write", 2, store.RetCSuccess, []any{ints(5, 6, 7)}},
		{"failing write", 3, store.RetCTypeMismatch, nil},
		{"missing record", 4, store.RetCRecordNotFound, nil},
		{"remove", 5, store.RetCSuccess, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := records[tt.index]
			if b.ResultCode != tt.code {
				t.Errorf("ResultCode = %s (%v), want %s", b.ResultCode, b.Err, tt.code)
			}
			if (b.Err == nil) != (tt.code == store.RetCSuccess) {
				t.Errorf("Err = %v, want code %s", b.Err, tt.code)
			}
			if tt.results != nil && !reflect.DeepEqual(b.Results, tt.results) {
				t.Errorf("Results = %#v, want %#v", b.Results, tt.results)
			}
		})
	}

	if rec := records[0].Record; rec == nil || !reflect.DeepEqual(rec.Bins["l"], base()) {
		t.Errorf("batch read record = %v, want %v", rec, base())
	}
	if rec := records[2].Record; rec == nil || !reflect.DeepEqual(rec.Bins["l"], ints(8, 9, 10)) {
		t.Errorf("batch write record = %v, want l=[8 9 10]", rec)
	}
	if ok, _ := s.Exists("b"); ok {
		t.Errorf("Exists(b) = true after batch remove")
	}

	if !udf {
		return
	}
	apply := []*store.BatchRecord{
		store.NewBatchApply("counter", UDFModule, "incr", 5),
		store.NewBatchApply("counter", UDFModule, "missing"),
	}
	if err := s.BatchOperate(apply); err != nil {
		t.Fatalf("BatchOperate() error = %v", err)
	}
	if apply[0].ResultCode != store.RetCSuccess || !reflect.DeepEqual(apply[0].Results, []any{int64(5)}) {
		t.Errorf("apply = %s %v, want Success [5]", apply[0].ResultCode, apply[0].Results)
	}
	if apply[1].ResultCode != store.RetCUDFError {
		t.Errorf("apply of unknown udf = %s, want %s", apply[1].ResultCode, store.RetCUDFError)
	}
}

func testTTL(t *testing.T, s store.IStore) {
	if err := s.Put("short", record.Bins{"a": 1}, 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("long", record.Bins{"a": 1}, 1000); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("forever", record.Bins{"a": 1}, store.TTLNeverExpire); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		mustPut(t, s, fmt.Sprintf("tick-%d", i), record.Bins{"a": i})
	}

	if ok, _ := s.Exists("short"); ok {
		t.Errorf("Exists(short) = true after its ttl")
	}
	for _, key := range []string{"long", "forever"} {
		if ok, _ := s.Exists(key); !ok {
			t.Errorf("Exists(%s) = false, want true", key)
		}
	}

	// Operate keeps the lifetime of the record
	mustOperate(t, s, "long", record.Put{Bin: "b", Value: 2})
	if ok, _ := s.Exists("long"); !ok {
		t.Errorf("Exists(long) = false after operate")
	}

	expectCode(t, s.Put("k", record.Bins{"a": 1}, -3), store.RetCInvalidOperation)
}

func testUDF(t *testing.T, s store.IStore) {
	for i, want := range []int64{2, 4, 6} {
		records := []*store.BatchRecord{store.NewBatchApply("counter", UDFModule, "incr", 2)}
		if err := s.BatchOperate(records); err != nil {
			t.Fatalf("BatchOperate() error = %v", err)
		}
		if got := records[0].Results; !reflect.DeepEqual(got, []any{want}) {
			t.Errorf("call %d: result = %v, want [%d]", i, got, want)
		}
	}

	rec, err := s.Get("counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Bins["n"] != int64(6) || rec.Generation != 3 {
		t.Errorf("counter = %v (gen %d), want 6 (gen 3)", rec.Bins["n"], rec.Generation)
	}

	records := []*store.BatchRecord{store.NewBatchApply("counter", UDFModule, "incr", "x")}
	if err := s.BatchOperate(records); err != nil {
		t.Fatalf("BatchOperate() error = %v", err)
	}
	if records[0].ResultCode != store.RetCInvalidOperation {
		t.Errorf("invalid udf argument = %s, want %s", records[0].ResultCode, store.RetCInvalidOperation)
	}
}
