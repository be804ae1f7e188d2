// Package base implements the framed socket transport shared by the tcp and
// unix transports. Network specific dialing and listening is injected through
// IClientConnector and IServerConnector.
//
// Every request and response is one frame:
//
//	[shardID:8][requestID:8][length:4][payload]
//
// The client keeps ConnectionsPerEndpoint connections per endpoint and picks
// one round robin for each request. Requests are pipelined: a reader goroutine
// per connection matches responses to waiting callers by request id, so many
// requests can be in flight on one socket. A broken connection fails its
// pending requests and is redialed. Send retries RetryCount times with
// exponential backoff.
//
// The server answers at most WorkersPerConn requests of a connection
// concurrently and reuses read buffers through a sync.Pool.
//
// Thread-safety: all exported methods are safe for concurrent use.
package base
