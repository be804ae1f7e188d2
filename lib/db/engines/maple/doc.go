// Package maple implements db.KVDB as a sharded in-memory map.
//
// Keys are hashed with a per-instance seed (util.HashString) and spread over
// a fixed number of shards. Each shard holds an xsync.MapOf of entries and a
// heap of deletion deadlines.
//
// Write index:
//
// The caller supplies a logical write index with every write (the raft log
// index when used behind dragonboat, a counter otherwise). The database keeps
// the highest index seen and uses it as its clock:
//   - a write whose index is lower than the stored entry's index is ignored
//   - an entry written with SetE (or a Mutation with DeleteIn) disappears once
//     the clock reaches writeIndex+deleteIn
//
// Atomic updates:
//
// Update runs the caller's function inside xsync's Compute, i.e. while the
// bucket of that key is locked. Read-modify-write on a single key is therefore
// linearizable without a separate lock manager. Set, SetE and Delete are thin
// wrappers around Update.
//
// Garbage collection:
//
// Writes with a deadline register the key in the shard's deadline heap (and
// writes without one remove it). One goroutine per shard pops due keys on a
// fixed interval and removes them after re-checking the entry, since it may
// have been rewritten in the meantime. Get and Has check deadlines themselves,
// so a lagging collector is never visible to readers.
//
// Persistence format (little endian):
//  1. Magic number "MAPLEDB\x00"
//  2. Version (uint8, currently 4)
//  3. Hash seed (uint64)
//  4. Number of entries (uint64)
//  5. Per entry: key hash, deleteAt, index (uint64 each), value length
//     (uint32), value bytes
//
// Save takes a fuzzy snapshot without blocking writers; callers that need a
// consistent cut (e.g. the raft state machine) must provide one themselves.
package maple
