// Package store defines the record store (IStore) that the CDT operations run
// against, together with its error taxonomy and batch records.
//
// Key Components:
//
//   - IStore: Put, Get, Exists, Remove, Operate and BatchOperate on records.
//     Operate applies a list of record.Operation atomically; BatchOperate runs
//     a list of BatchRecord (read, write, apply, remove) where every record
//     carries its own outcome.
//
//   - Error System: every method returns a *Error with a RetCode. FromError
//     classifies the sentinel errors of the cdt and record packages, and
//     Error.Unwrap maps a code back to its sentinel, so errors.Is behaves the
//     same on both sides of an RPC connection. IsClientError separates client
//     side failures (ClientError, MaxErrorRate, Timeout) from server side ones.
//
//   - DBFactory: creates the db.KVDB a store persists its records in.
//
// Implementations:
//
//   - lstore: a single node store directly on a db.KVDB.
//   - dstore: a raft replicated store built on dragonboat.
//   - astore: a store backed by an Aerospike cluster.
//   - rpc/client: a remote store served by rpc/server.
//
// The local and raft stores share the record logic in store/internal/executor;
// the conformance suite in store/testing runs against all of them.
package store
