// Package testing provides the conformance suite and benchmarks for
// store.IStore implementations.
//
// The suite checks record semantics (put, get, remove, generation), the CDT
// list and map operations end to end through Operate, the error codes, the
// atomicity of Operate and the per-record outcome of BatchOperate.
//
// Example usage:
//
//	storetesting.RunStoreTests(t, "LocalStore", func() store.IStore {
//		return lstore.NewLocalStore(dbFactory)
//	})
package testing
