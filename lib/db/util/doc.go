// Package util provides helpers shared by db.KVDB implementations.
//
// The package contains:
//   - functions: the seeded key hash and shard selection
//   - deadlineheap: a keyed min-heap of deletion deadlines driving the garbage collector
//   - statistics: shard distribution statistics and sampled size estimates for GetInfo
package util
