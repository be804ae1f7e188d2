// Package util
//
// This file provides the estimators used by GetInfo implementations: shard
// distribution statistics and a sampled size distribution. Both are backed by
// the sample functions of go-metrics, so callers only pay for the entries they
// actually sample.
package util

import (
	"math"

	gometrics "github.com/rcrowley/go-metrics"
)

// ----------------------------------------------------------------------------
// Distribution statistics
// ----------------------------------------------------------------------------

// DistributionStats describes how evenly a quantity (e.g. entries per shard)
// is spread across buckets.
type DistributionStats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
	// DistributionQuality is 1 for a perfectly even spread and approaches 0
	// the more skewed the buckets are.
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats computes the distribution statistics of sizes.
func NewDistributionStats(sizes []int64) DistributionStats {
	if len(sizes) == 0 {
		return DistributionStats{}
	}

	stats := DistributionStats{
		StdDeviation: gometrics.SampleStdDev(sizes),
		Min:          float64(gometrics.SampleMin(sizes)),
		Max:          float64(gometrics.SampleMax(sizes)),
		Mean:         gometrics.SampleMean(sizes),
		MinMaxRatio:  1.0,
	}
	if stats.Max > 0 {
		stats.MinMaxRatio = stats.Min / stats.Max
	}

	// coefficient of variation
	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}
	stats.DistributionQuality = (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5

	return stats
}

// ----------------------------------------------------------------------------
// Size sampling
// ----------------------------------------------------------------------------

// SizeSample keeps a uniform reservoir of value sizes.
//
// Thread-safety: all methods are safe for concurrent use.
type SizeSample struct {
	h gometrics.Histogram
}

// NewSizeSample creates a sample that keeps at most reservoir values.
func NewSizeSample(reservoir int) *SizeSample {
	return &SizeSample{h: gometrics.NewHistogram(gometrics.NewUniformSample(reservoir))}
}

// Add records one size.
func (s *SizeSample) Add(size int) {
	s.h.Update(int64(size))
}

// Count returns the number of recorded sizes (including those evicted from the reservoir).
func (s *SizeSample) Count() int64 {
	return s.h.Count()
}

// Mean returns the mean of the sampled sizes.
func (s *SizeSample) Mean() int {
	return int(s.h.Mean())
}

// Percentile returns the p-th percentile (0 < p <= 1) of the sampled sizes.
func (s *SizeSample) Percentile(p float64) int {
	return int(s.h.Percentile(p))
}

// Estimate returns a size estimate weighted 60/40 between median and mean,
// which is less sensitive to a few large values than the mean alone.
func (s *SizeSample) Estimate() int {
	return (s.Percentile(0.5)*60 + s.Mean()*40) / 100
}
