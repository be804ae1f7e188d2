// Package server serves store.IStore shards over an rpc transport.
//
// An RPCServer maps shard ids to stores. Every request names its shard; the
// server decodes it with the configured serializer, lets the IStore adapter
// call Put, Get, Exists, Remove, Operate, BatchOperate or GetDBInfo, and
// encodes the result. Store failures travel back as the store.RetCode of the
// response.
//
// Shard types, mixable within one server:
//
//   - lstore: a local in-memory store.
//   - dstore: a store replicated with raft (dragonboat). The raft settings of
//     ServerConfig (RTTMillisecond, DataDir, ReplicaID, ClusterMembers, ...)
//     must be set.
//   - astore: a proxy to an aerospike cluster configured by ServerConfig.Aerospike.
//
// With ServerConfig.Metrics enabled every request updates the counters
// dcdt_requests_total and dcdt_request_errors_total and the histogram
// dcdt_request_duration_seconds, labeled by message type.
//
// Example:
//
//	config := common.ServerConfig{
//		Shards:        []common.ServerShard{{ShardID: 100, Type: common.ShardTypeLocalIStore}},
//		TimeoutSecond: 5,
//		Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	}
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//		log.Fatalf("server error: %v", err)
//	}
//
// Thread-safety: HandleRequest and AddShard are safe for concurrent use.
// Serve must be called once.
package server
