// Package astore implements store.IStore on a live aerospike cluster.
//
// Operations, selectors, return types and context paths are translated into the
// CDT operations of aerospike-client-go, so the server evaluates them. Results are
// converted back into the cdt value model and errors into *store.Error with the
// same RetCode the local stores use.
//
// Differences to lstore and dstore:
//
//   - TTLs are seconds, not write ticks.
//   - Batch applies call Lua UDFs registered on the cluster, not record.RegisterUDF functions.
//   - Map keys must be hashable values (no lists, maps or byte slices).
//   - Error-rate admission control is done by the client (Config.MaxErrorRate).
package astore
