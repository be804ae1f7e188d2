package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// requestMetrics are registered in the default VictoriaMetrics set, which
// the http transport exposes at /metrics.
type requestMetrics struct {
	requests *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// observe records one handled request of type t.
func observe(t common.MessageType, start time.Time, failed bool) {
	m := metricsFor(t)
	m.requests.Inc()
	if failed {
		m.errors.Inc()
	}
	m.duration.UpdateDuration(start)
}

func metricsFor(t common.MessageType) requestMetrics {
	label := fmt.Sprintf(`{type=%q}`, t.String())
	return requestMetrics{
		requests: metrics.GetOrCreateCounter("dcdt_requests_total" + label),
		errors:   metrics.GetOrCreateCounter("dcdt_request_errors_total" + label),
		duration: metrics.GetOrCreateHistogram("dcdt_request_duration_seconds" + label),
	}
}
