// Package cdt implements the query and mutation engine for complex data
// types (CDTs): lists and maps stored in record bins.
//
// The package is pure. Every function takes a snapshot of a collection and
// returns new values; inputs are never modified, so an operation that fails
// half way leaves nothing behind and callers get atomicity for free by
// swapping in the result only on success.
//
// The engine is made of four parts:
//
//   - Ranking (rank.go): stable ranking of elements under the total order
//     defined by Compare. Equal values are ranked by their index.
//
//   - Selector evaluation (selector.go, evaluate.go): the closed set of
//     selectors (ByIndex, ByIndexRange, ByRank, ByRankRange, ByValue,
//     ByValueList, ByValueRange and the map only ByKey, ByKeyList,
//     ByKeyRange), each optionally inverted.
//
//   - Projection (project.go): renders the matched elements as values,
//     indices, reverse indices, ranks, reverse ranks, a count or an
//     existence flag. Non-inverted ByIndex, ByRank and ByKey yield a scalar,
//     every other combination a sequence.
//
//   - Mutation (mutate.go): RemoveBy, SetOrder, Sort, Append, Insert, Put,
//     Clear.
//
// Nested collections are addressed with context paths (ctx.go), and codec.go
// holds the binary encoding used to store and transmit values.
//
// Example:
//
//	list := []any{int64(7), int64(6), int64(5), int64(8), int64(9), int64(10)}
//	v, _ := cdt.GetBy(list, cdt.ByIndex{Index: 2}, cdt.ReturnValue, false)        // int64(5)
//	r, _ := cdt.GetBy(list, cdt.ByIndex{Index: 2}, cdt.ReturnRank, false)         // int64(0)
//	removed, rest, _ := cdt.RemoveBy(list, cdt.IndexRange(2, 2), cdt.ReturnValue, false)
//	// removed = [5 8], rest = [7 6 9 10]
package cdt
