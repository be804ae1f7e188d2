package executor

import (
	"testing"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

func TestStaleWriteIsReported(t *testing.T) {
	x := New(maple.NewMapleDB(nil))

	if err := x.Put("k", record.Bins{"b": int64(1)}, 0, db.FixedIndex(5)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := x.Put("k", record.Bins{"b": int64(2)}, 0, db.FixedIndex(3))
	if got := store.CodeOf(err); got != store.RetCInternalError {
		t.Errorf("stale Put() error = %v, want code %s", err, store.RetCInternalError)
	}

	ops := []record.Operation{record.Put{Bin: "b", Value: int64(3)}}
	if _, _, err := x.Operate("k", ops, store.TTLDontUpdate, db.FixedIndex(4)); store.CodeOf(err) != store.RetCInternalError {
		t.Errorf("stale Operate() error = %v, want code %s", err, store.RetCInternalError)
	}

	rec, err := x.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Bins["b"] != int64(1) || rec.Generation != 1 {
		t.Errorf("Get() = %v gen %d, want b=1 gen 1", rec.Bins, rec.Generation)
	}
}

func TestIndexTakenInsideUpdate(t *testing.T) {
	x := New(maple.NewMapleDB(nil))

	var next uint64
	calls := 0
	nextIndex := func() uint64 {
		calls++
		next++
		return next
	}

	for i := 0; i < 3; i++ {
		if err := x.Put("k", record.Bins{"b": int64(i)}, 0, nextIndex); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("index calls = %d, want 3", calls)
	}
	if got := x.DB().WriteIdx(); got != 3 {
		t.Errorf("WriteIdx() = %d, want 3", got)
	}
}
