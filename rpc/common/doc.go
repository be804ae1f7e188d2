// Package common holds the types shared by the rpc client, server and
// transports.
//
//   - Message: the single request/response structure exchanged over every
//     transport. Requests carry a key, a TTL and an encoded payload (bins,
//     operations or batch records). Responses carry the encoded result, an
//     Ok flag and the store.RetCode of a failure, so clients can rebuild the
//     same typed *store.Error the server returned.
//
//   - MessageType: put, get, exists, remove, operate, batch and info
//     requests plus the success and error control messages.
//
//   - ServerConfig / ClientConfig: server shards, raft parameters and
//     transport options, and client endpoints, retries and error-rate limits.
//     ServerConfig converts to dragonboat's Config and NodeHostConfig.
//
//   - InitLoggers: installs a dragonboat logger factory with a common
//     "LEVEL | package | message" format for all package loggers.
package common
