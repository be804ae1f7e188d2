// Package db defines the byte level storage interface the record stores are
// built on. Records are encoded by the store layer and kept here as opaque
// values, so any KVDB implementation can back a store.
//
// Key Components:
//
//   - KVDB Interface: Set, SetE (with a deletion deadline), Delete, Get, Has,
//     the atomic read-modify-write Update, persistence (Save, Load) and
//     metadata (GetInfo).
//
//   - Feature Flags: implementations advertise their capabilities through
//     SupportsFeature so stores can reject what a backend can not do.
//
//   - Update: the store applies record operations inside an UpdateFunc. The
//     function sees the current value and returns a Mutation (keep, write or
//     delete). Implementations must run it while the entry is locked, which
//     makes every Operate call linearizable per record.
//
// Note on Time:
//   - All writes take a write index that serves as a logical timestamp.
//     Deadlines (SetE, Mutation.DeleteIn) are relative to it.
//   - Reads operate against the most recent write index. Use SetWriteIdx to
//     advance logical time without writing.
//   - The write index only increases; lower values are ignored. Writes with an
//     index lower than the one that last touched an entry are dropped.
//   - Get and Has never return an entry past its deadline, even if the
//     garbage collector has not removed it yet.
//
// Related Packages:
//
// engines/maple is the sharded in-memory implementation, util holds hashing,
// the deadline heap and statistics, testing holds the conformance suite and
// benchmarks every implementation should pass.
package db
