// Package transport defines how serialized messages travel between an rpc
// client and server.
//
// A server transport calls a ServerHandleFunc for every request together with
// the shard id the request is addressed to. A client transport sends bytes to
// a shard and returns the response bytes. Implementations live in the
// subpackages: tcp and unix (framed sockets, see base) and http (chi router).
package transport
