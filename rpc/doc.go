// Package rpc exposes a store.IStore over the network.
//
// Subpackages:
//
//   - common: the Message type, configuration and logging.
//   - serializer: converts Messages to bytes (binary, json, gob).
//   - transport: moves bytes between client and server (tcp, unix, http).
//   - server: hosts one store per shard and answers requests.
//   - client: a store.IStore that forwards every call to a server.
package rpc
