// Package internal defines the messages exchanged between the dstore client
// and its raft state machine.
//
// Commands are write operations. They are serialized into the raft log with
// the following layout:
//
//   - 1 byte: Command type (Put, Remove, Operate, Batch)
//   - 8 bytes: TTL (int64, big endian; see the store.TTL constants)
//   - 4 bytes: Key length (uint32, big endian)
//   - N bytes: Key data
//   - M bytes: Payload (encoded bins, operations or batch records)
//
// Queries are read operations executed through SyncRead on the local node.
// They never leave the process and are therefore plain structs.
//
// The types in this package are not thread-safe; the raft log already
// serializes the commands applied to a state machine.
package internal
