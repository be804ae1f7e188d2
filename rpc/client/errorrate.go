package client

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultTendInterval is used when ClientConfig.TendIntervalMs is not set.
const defaultTendInterval = time.Second

// errorRateLimiter rejects requests once more than max transport errors
// happened since the last tend. A background tend loop resets the count
// every interval, which lets requests through again.
type errorRateLimiter struct {
	max    int64
	errors atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// newErrorRateLimiter returns a limiter, or nil if maxErrors <= 0.
// A nil limiter admits every request.
func newErrorRateLimiter(maxErrors int, interval time.Duration) *errorRateLimiter {
	if maxErrors <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = defaultTendInterval
	}
	l := &errorRateLimiter{
		max:    int64(maxErrors),
		stopCh: make(chan struct{}),
	}
	go l.tendLoop(interval)
	return l
}

// admit reports whether a request may be sent.
func (l *errorRateLimiter) admit() bool {
	return l == nil || l.errors.Load() <= l.max
}

// failure records a transport error.
func (l *errorRateLimiter) failure() {
	if l != nil {
		l.errors.Add(1)
	}
}

// tend resets the error count.
func (l *errorRateLimiter) tend() {
	if n := l.errors.Swap(0); n > l.max {
		Logger.Infof("error rate reset after %d errors (max %d)", n, l.max)
	}
}

func (l *errorRateLimiter) tendLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.tend()
		case <-l.stopCh:
			return
		}
	}
}

func (l *errorRateLimiter) stop() {
	if l != nil {
		l.stopOnce.Do(func() { close(l.stopCh) })
	}
}
