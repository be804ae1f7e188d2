// Package client provides RPCStore, a store.IStore that sends every call to
// one shard of a remote server.
//
// Errors returned by RPCStore are always *store.Error. Errors raised by the
// server keep their code (RecordNotFound, RankOutOfRange, ...). Failures of
// the transport itself are reported as ClientError, or Timeout when no
// response arrived in time.
//
// Error rate admission: with ClientConfig.MaxErrorRate > 0 the client counts
// transport failures. Once more than MaxErrorRate failures happened within one
// tend interval (TendIntervalMs, default 1s), requests fail immediately with
// MaxErrorRate without touching the network until the next tend resets the
// count. Server side errors do not count.
//
// Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 5,
//		MaxErrorRate:  100,
//		Transport: common.ClientTransportConfig{
//			Endpoints:  []string{"localhost:8080"},
//			RetryCount: 3,
//		},
//	}
//	s, err := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	results, err := s.Operate("user:1", []record.Operation{
//		record.ListGetBy{Bin: "scores", Selector: cdt.ByRankRange{Rank: -3, ToEnd: true}, Return: cdt.ReturnValue},
//	})
//
// Thread-safety: RPCStore is safe for concurrent use if its transport is.
package client
