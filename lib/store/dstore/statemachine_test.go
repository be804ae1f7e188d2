package dstore

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

func newStateMachine(t *testing.T) *RecordStateMachine {
	t.Helper()
	factory := CreateStateMachineFactory(func() db.KVDB { return maple.NewMapleDB(nil) })
	fsm := factory(1, 1).(*RecordStateMachine)
	t.Cleanup(func() { _ = fsm.Close() })
	return fsm
}

// propose runs cmd as log entry index and returns its result.
func propose(t *testing.T, fsm *RecordStateMachine, index uint64, cmd internal.Command) sm.Result {
	t.Helper()
	entries, err := fsm.Update([]sm.Entry{{Index: index, Cmd: cmd.Serialize()}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	return entries[0].Result
}

func TestStateMachinePutAndGet(t *testing.T) {
	fsm := newStateMachine(t)

	cmd, err := internal.NewPutCommand("k", record.Bins{"list": []any{3, 1, 2}}, store.TTLDefault)
	if err != nil {
		t.Fatal(err)
	}
	if res := propose(t, fsm, 1, cmd); res.Value != uint64(store.RetCSuccess) {
		t.Fatalf("put result = %d (%s), want success", res.Value, res.Data)
	}

	got, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: "k"})
	if err != nil {
		t.Fatalf("Lookup(Get) error = %v", err)
	}
	rec := got.(*record.Record)
	if !reflect.DeepEqual(rec.Bins["list"], []any{int64(3), int64(1), int64(2)}) {
		t.Errorf("bin list = %v, want [3 1 2]", rec.Bins["list"])
	}
	if rec.Generation != 1 {
		t.Errorf("generation = %d, want 1", rec.Generation)
	}

	exists, err := fsm.Lookup(internal.Query{Type: internal.QueryTExists, Key: "missing"})
	if err != nil || exists.(bool) {
		t.Errorf("Lookup(Exists) = %v, %v, want false, nil", exists, err)
	}
}

func TestStateMachineOperate(t *testing.T) {
	fsm := newStateMachine(t)

	cmd, err := internal.NewOperateCommand("k", []record.Operation{
		record.ListAppend{Bin: "l", Values: []any{int64(5), int64(7), int64(6)}},
		record.ListRemoveBy{Bin: "l", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnValue},
	})
	if err != nil {
		t.Fatal(err)
	}
	res := propose(t, fsm, 1, cmd)
	if res.Value != uint64(store.RetCSuccess) {
		t.Fatalf("operate result = %d (%s), want success", res.Value, res.Data)
	}
	results, err := record.DecodeValues(res.Data)
	if err != nil {
		t.Fatalf("DecodeValues() error = %v", err)
	}
	want := []any{int64(3), int64(5)}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}

	got, err := fsm.Lookup(internal.Query{Type: internal.QueryTRead, Key: "k", Ops: []record.Operation{
		record.ListGetBy{Bin: "l", Selector: cdt.ByIndexRange{Index: 0, ToEnd: true}, Return: cdt.ReturnValue},
	}})
	if err != nil {
		t.Fatalf("Lookup(Read) error = %v", err)
	}
	if rr := got.(internal.ReadResult); !reflect.DeepEqual(rr.Results, []any{[]any{int64(7), int64(6)}}) {
		t.Errorf("read results = %v, want [[7 6]]", rr.Results)
	}
}

func TestStateMachineErrors(t *testing.T) {
	fsm := newStateMachine(t)

	tests := []struct {
		name string
		cmd  internal.Command
		want store.RetCode
	}{
		{"remove missing", internal.Command{Type: internal.CommandTRemove, Key: "nope"}, store.RetCRecordNotFound},
		{"unknown command", internal.Command{Type: internal.CommandType(200), Key: "k"}, store.RetCInvalidOperation},
		{"bad ops payload", internal.Command{Type: internal.CommandTOperate, Key: "k", Payload: []byte{0xff}}, store.RetCInvalidOperation},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := propose(t, fsm, uint64(i+1), tt.cmd); res.Value != uint64(tt.want) {
				t.Errorf("result = %s (%s), want %s", store.RetCode(res.Value), res.Data, tt.want)
			}
		})
	}

	entries, _ := fsm.Update([]sm.Entry{{Index: 10}})
	if entries[0].Result.Value != uint64(store.RetCInvalidOperation) {
		t.Errorf("empty command result = %d, want %d", entries[0].Result.Value, store.RetCInvalidOperation)
	}

	_, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: "nope"})
	if store.CodeOf(err) != store.RetCRecordNotFound {
		t.Errorf("Lookup(Get missing) code = %s, want %s", store.CodeOf(err), store.RetCRecordNotFound)
	}
	if _, err := fsm.Lookup("not a query"); store.CodeOf(err) != store.RetCInternalError {
		t.Errorf("Lookup(string) code = %s, want %s", store.CodeOf(err), store.RetCInternalError)
	}
}

func TestStateMachineBatch(t *testing.T) {
	fsm := newStateMachine(t)

	batch := []*store.BatchRecord{
		store.NewBatchWrite("a", record.ListAppend{Bin: "l", Values: []any{int64(1)}}),
		store.NewBatchRead("missing"),
		store.NewBatchRemove("missing"),
	}
	cmd, err := internal.NewBatchCommand(batch)
	if err != nil {
		t.Fatal(err)
	}
	res := propose(t, fsm, 1, cmd)
	if res.Value != uint64(store.RetCSuccess) {
		t.Fatalf("batch result = %d (%s), want success", res.Value, res.Data)
	}
	if err := store.DecodeBatchResults(batch, res.Data); err != nil {
		t.Fatalf("DecodeBatchResults() error = %v", err)
	}

	wantCodes := []store.RetCode{store.RetCSuccess, store.RetCRecordNotFound, store.RetCRecordNotFound}
	for i, b := range batch {
		if b.ResultCode != wantCodes[i] {
			t.Errorf("batch[%d].ResultCode = %s, want %s", i, b.ResultCode, wantCodes[i])
		}
	}

	reads := []*store.BatchRecord{store.NewBatchRead("a"), store.NewBatchRead("missing")}
	if _, err := fsm.Lookup(internal.Query{Type: internal.QueryTBatchRead, Batch: reads}); err != nil {
		t.Fatalf("Lookup(BatchRead) error = %v", err)
	}
	if reads[0].ResultCode != store.RetCSuccess || reads[0].Record == nil {
		t.Errorf("reads[0] = %v, want the record", reads[0])
	}
	if reads[1].ResultCode != store.RetCRecordNotFound {
		t.Errorf("reads[1].ResultCode = %s, want %s", reads[1].ResultCode, store.RetCRecordNotFound)
	}

	_, err = fsm.Lookup(internal.Query{Type: internal.QueryTBatchRead, Batch: []*store.BatchRecord{store.NewBatchRemove("a")}})
	if store.CodeOf(err) != store.RetCInvalidOperation {
		t.Errorf("Lookup(BatchRead with remove) code = %s, want %s", store.CodeOf(err), store.RetCInvalidOperation)
	}
}

func TestStateMachineSnapshot(t *testing.T) {
	fsm := newStateMachine(t)
	cmd, _ := internal.NewPutCommand("k", record.Bins{"s": "v"}, store.TTLDefault)
	propose(t, fsm, 1, cmd)

	var buf bytes.Buffer
	if err := fsm.SaveSnapshot(nil, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	restored := newStateMachine(t)
	if err := restored.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot() error = %v", err)
	}
	got, err := restored.Lookup(internal.Query{Type: internal.QueryTGet, Key: "k"})
	if err != nil {
		t.Fatalf("Lookup(Get) error = %v", err)
	}
	if v := got.(*record.Record).Bins["s"]; v != "v" {
		t.Errorf("restored bin s = %v, want v", v)
	}
}
