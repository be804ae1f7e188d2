// Package http carries rpc messages over http using a chi router.
//
// The server answers POST /{shardId} with the handler's response body and
// also serves GET /health and, if ServerConfig.Metrics is set, GET /metrics
// in the prometheus text format (VictoriaMetrics default set). The client
// posts to its endpoints round robin and retries failed requests
// RetryCount times.
package http
