// Package dstore implements a replicated record store on top of the Dragonboat
// RAFT library. It satisfies store.IStore and gives linearizable access to every
// record across all replicas of a shard.
//
// Components:
//
//   - Store client (store.go): implements store.IStore. Writes are serialized into
//     internal.Command values and proposed with SyncPropose, reads are sent as
//     internal.Query values through SyncRead.
//
//   - State machine (statemachine.go): a Dragonboat IConcurrentStateMachine that
//     owns a db.KVDB and executes commands and queries with the shared executor
//     (lib/store/internal/executor), the same code lstore runs.
//
//   - Protocol (internal): the command wire format and the query types.
//
// Writes:
//
//	Put, Remove, Operate with at least one writing operation and every batch that
//	contains something other than reads go through the raft log:
//
//	1. The operation is encoded into a Command
//	2. The Command is proposed to the shard via SyncPropose
//	3. Once committed, every replica executes it in Update with the log index as write index
//	4. The result code travels back in sm.Result.Value, the message or the encoded
//	   results in sm.Result.Data
//
//	Because the log index is the write index, TTLs expire after the same number of
//	log entries on every replica. All writes of one batch share the index of its entry.
//
// Reads:
//
//	Get, Exists, read-only Operate calls and read-only batches use SyncRead, so the
//	local replica has applied every committed entry before answering. GetDBInfo uses
//	StaleRead.
//
// Errors and retries:
//
//	ErrSystemBusy is retried a few times with a short pause. Raft timeouts are
//	reported as store.RetCTimeout. Errors of the state machine keep their store.RetCode.
//	If a batch proposal fails, every write of the batch is marked InDoubt.
//
// Snapshots:
//
//	The state machine creates fuzzy snapshots with db.KVDB Save and restores them with
//	Load. A recovering replica loads the newest snapshot and then replays the log.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }
//	err = nh.StartConcurrentReplica(members, false, dstore.CreateStateMachineFactory(dbFactory), shardConfig)
//	if err != nil { ... }
//
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// For single node use without consensus see package lstore.
package dstore
