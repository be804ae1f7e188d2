package dstore

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/dstore/internal"
	"github.com/ValentinKolb/dCDT/lib/store/internal/executor"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// RecordStateMachine is the Dragonboat state machine holding the records of one shard.
// Every command is executed with the raft log index as write index, so all
// replicas apply the same writes with the same logical timestamps.
type RecordStateMachine struct {
	replicaID uint64
	shardID   uint64
	exec      *executor.Executor
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory.
func CreateStateMachineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &RecordStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			exec:      executor.New(dbFactory()),
		}
	}
}

// noWrites is passed to batches executed by Lookup, which contain only reads.
var noWrites = db.FixedIndex(0)

// Lookup handles read-only queries.
func (fsm *RecordStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTGet:
		return fsm.exec.Get(q.Key)
	case internal.QueryTExists:
		return fsm.exec.Exists(q.Key)
	case internal.QueryTRead:
		_, results, err := fsm.exec.Read(q.Key, q.Ops)
		if err != nil {
			return nil, err
		}
		return internal.ReadResult{Results: results}, nil
	case internal.QueryTBatchRead:
		for _, b := range q.Batch {
			if b.Kind != store.BatchRead {
				return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("%s in read-only batch", b.Kind))
			}
		}
		fsm.exec.Batch(q.Batch, noWrites)
		return true, nil
	case internal.QueryTGetDBInfo:
		return fsm.exec.DB().GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %s", q.Type))
	}
}

// result converts the outcome of a command into a raft result.
// The value is the store.RetCode, the data either the error message or the encoded results.
func result(data []byte, err error) sm.Result {
	if err != nil {
		e := store.FromError(err)
		return sm.Result{Value: uint64(e.Code), Data: []byte(e.Msg)}
	}
	return sm.Result{Value: uint64(store.RetCSuccess), Data: data}
}

// apply executes a single command with the given log index.
func (fsm *RecordStateMachine) apply(cmd *internal.Command, index uint64) ([]byte, error) {
	switch cmd.Type {
	case internal.CommandTPut:
		bins, err := cmd.Bins()
		if err != nil {
			return nil, store.NewError(store.RetCInvalidOperation, err.Error())
		}
		return nil, fsm.exec.Put(cmd.Key, bins, cmd.TTL, db.FixedIndex(index))

	case internal.CommandTRemove:
		return nil, fsm.exec.Remove(cmd.Key, db.FixedIndex(index))

	case internal.CommandTOperate:
		ops, err := record.DecodeOps(cmd.Payload)
		if err != nil {
			return nil, store.NewError(store.RetCInvalidOperation, err.Error())
		}
		_, results, err := fsm.exec.Operate(cmd.Key, ops, cmd.TTL, db.FixedIndex(index))
		if err != nil {
			return nil, err
		}
		return record.EncodeValues(results)

	case internal.CommandTBatch:
		records, err := store.DecodeBatch(cmd.Payload)
		if err != nil {
			return nil, store.NewError(store.RetCInvalidOperation, err.Error())
		}
		// all writes of the batch share the index of its log entry
		fsm.exec.Batch(records, db.FixedIndex(index))
		return store.EncodeBatchResults(records)

	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type))
	}
}

// Update handles write commands.
// All write operations are serialized into []byte and are accessible via the entries struct.
func (fsm *RecordStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCInternalError),
				Data:  []byte(fmt.Sprintf("failed to deserialize command: %v", err)),
			}
			continue
		}

		entries[idx].Result = result(fsm.apply(&cmd, e.Index))
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot is not used. We don't need to prepare anything since we use fuzzy snapshotting.
func (fsm *RecordStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy db snapshot to the writer.
func (fsm *RecordStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.exec.DB().SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("the KVDB implementation of shard %d does not support Save()", fsm.shardID)
	}
	return fsm.exec.DB().Save(writer)
}

// RecoverFromSnapshot replaces the database content with the snapshot.
func (fsm *RecordStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.exec.DB().SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the KVDB implementation of shard %d does not support Load()", fsm.shardID)
	}
	return fsm.exec.DB().Load(r)
}

// Close performs any necessary cleanup.
func (fsm *RecordStateMachine) Close() error {
	return fsm.exec.DB().Close()
}
