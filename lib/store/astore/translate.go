package astore

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
)

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// toClient converts a value of the cdt value model into the representation
// the aerospike client packs. Maps become map[any]any, so map keys must be
// hashable (no lists, maps or byte slices).
func toClient(v any) (any, error) {
	switch t := v.(type) {
	case []any:
		return toClientList(t)
	case cdt.OrderedList:
		return toClientList(t)
	case cdt.Map:
		m := make(map[any]any, len(t))
		for _, e := range t {
			switch e.Key.(type) {
			case []any, cdt.OrderedList, cdt.Map, []byte:
				return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("map key %v is not supported by aerospike", e.Key))
			}
			val, err := toClient(e.Value)
			if err != nil {
				return nil, err
			}
			m[e.Key] = val
		}
		return m, nil
	}
	return v, nil
}

func toClientList(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := toClient(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toClientValues(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		n, err := cdt.Normalize(v)
		if err != nil {
			return nil, store.FromError(err)
		}
		if out[i], err = toClient(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fromClient converts a value returned by the client into the cdt value model.
func fromClient(v any) (any, error) {
	switch t := v.(type) {
	case []as.MapPair:
		entries := make(cdt.Map, len(t))
		for i, p := range t {
			entries[i] = cdt.MapEntry{Key: p.Key, Value: p.Value}
		}
		return cdt.Normalize(entries)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := fromClient(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	return cdt.Normalize(v)
}

// --------------------------------------------------------------------------
// Context Paths
// --------------------------------------------------------------------------

func translateCtx(path []cdt.CtxStep) ([]*as.CDTContext, error) {
	if len(path) == 0 {
		return nil, nil
	}
	out := make([]*as.CDTContext, len(path))
	for i, step := range path {
		switch s := step.(type) {
		case cdt.CtxListIndex:
			out[i] = as.CtxListIndex(s.Index)
		case cdt.CtxListRank:
			out[i] = as.CtxListRank(s.Rank)
		case cdt.CtxListValue:
			v, err := toClientValues([]any{s.Value})
			if err != nil {
				return nil, err
			}
			out[i] = as.CtxListValue(as.NewValue(v[0]))
		case cdt.CtxMapIndex:
			out[i] = as.CtxMapIndex(s.Index)
		case cdt.CtxMapRank:
			out[i] = as.CtxMapRank(s.Rank)
		case cdt.CtxMapKey:
			v, err := toClientValues([]any{s.Key})
			if err != nil {
				return nil, err
			}
			out[i] = as.CtxMapKey(as.NewValue(v[0]))
		case cdt.CtxMapValue:
			v, err := toClientValues([]any{s.Value})
			if err != nil {
				return nil, err
			}
			out[i] = as.CtxMapValue(as.NewValue(v[0]))
		default:
			return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown context step %T", step))
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Return Types
// --------------------------------------------------------------------------

func listReturnType(rt cdt.ReturnType, inverted bool) (as.ListReturnType, error) {
	var out as.ListReturnType
	switch rt {
	case cdt.ReturnNone:
		out = as.ListReturnTypeNone
	case cdt.ReturnValue:
		out = as.ListReturnTypeValue
	case cdt.ReturnIndex:
		out = as.ListReturnTypeIndex
	case cdt.ReturnReverseIndex:
		out = as.ListReturnTypeReverseIndex
	case cdt.ReturnRank:
		out = as.ListReturnTypeRank
	case cdt.ReturnReverseRank:
		out = as.ListReturnTypeReverseRank
	case cdt.ReturnCount:
		out = as.ListReturnTypeCount
	case cdt.ReturnExists:
		out = as.ListReturnTypeExists
	default:
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("return type %s is not valid for lists", rt))
	}
	if inverted {
		out |= as.ListReturnTypeInverted
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// translateOps converts operations into client operations.
func translateOps(ops []record.Operation) ([]*as.Operation, error) {
	out := make([]*as.Operation, 0, len(ops))
	for _, op := range ops {
		if err := record.ValidateBinName(op.BinName()); err != nil {
			return nil, store.FromError(err)
		}
		o, err := translateOp(op)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func translateOp(op record.Operation) (*as.Operation, error) {
	switch o := op.(type) {
	case record.Get:
		return as.GetBinOp(o.Bin), nil
	case record.Put:
		v, err := toClientValues([]any{o.Value})
		if err != nil {
			return nil, err
		}
		return as.PutOp(as.NewBin(o.Bin, v[0])), nil
	case record.ListSetOrder:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		order := as.ListOrderUnordered
		if o.Order == cdt.Ordered {
			order = as.ListOrderOrdered
		}
		return as.ListSetOrderOp(o.Bin, order, ctx...), nil
	case record.ListSort:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		flags := as.ListSortFlagsDefault
		if o.Flags&cdt.SortDropDuplicates != 0 {
			flags = as.ListSortFlagsDropDuplicates
		}
		return as.ListSortOp(o.Bin, flags, ctx...), nil
	case record.ListAppend, record.ListInsert, record.ListSize, record.ListClear:
		return translateListOp(op)
	case record.ListGetBy:
		return listSelectOp(o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted, false)
	case record.ListRemoveBy:
		return listSelectOp(o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted, true)
	case record.MapPut, record.MapSize, record.MapClear:
		return translateMapOp(op)
	case record.MapGetBy:
		return mapSelectOp(o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted, false)
	case record.MapRemoveBy:
		return mapSelectOp(o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted, true)
	}
	return nil, store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("operation %T is not supported by aerospike", op))
}

func translateListOp(op record.Operation) (*as.Operation, error) {
	switch o := op.(type) {
	case record.ListAppend:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		values, err := toClientValues(o.Values)
		if err != nil {
			return nil, err
		}
		return as.ListAppendWithPolicyContextOp(as.DefaultListPolicy(), o.Bin, ctx, values...), nil
	case record.ListInsert:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		values, err := toClientValues(o.Values)
		if err != nil {
			return nil, err
		}
		return as.ListInsertWithPolicyContextOp(as.DefaultListPolicy(), o.Bin, o.Index, ctx, values...), nil
	case record.ListSize:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		return as.ListSizeOp(o.Bin, ctx...), nil
	case record.ListClear:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		return as.ListClearOp(o.Bin, ctx...), nil
	}
	return nil, store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("operation %T is not a list operation", op))
}

func translateMapOp(op record.Operation) (*as.Operation, error) {
	switch o := op.(type) {
	case record.MapPut:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		kv, err := toClientValues([]any{o.Key, o.Value})
		if err != nil {
			return nil, err
		}
		return as.MapPutOp(as.DefaultMapPolicy(), o.Bin, kv[0], kv[1], ctx...), nil
	case record.MapSize:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		return as.MapSizeOp(o.Bin, ctx...), nil
	case record.MapClear:
		ctx, err := translateCtx(o.Ctx)
		if err != nil {
			return nil, err
		}
		return as.MapClearOp(o.Bin, ctx...), nil
	}
	return nil, store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("operation %T is not a map operation", op))
}

// listSelectOp builds the get_by or remove_by operation for a list selector.
func listSelectOp(bin string, path []cdt.CtxStep, sel cdt.Selector, rt cdt.ReturnType, inverted, remove bool) (*as.Operation, error) {
	ctx, err := translateCtx(path)
	if err != nil {
		return nil, err
	}
	lrt, err := listReturnType(rt, inverted)
	if err != nil {
		return nil, err
	}

	switch s := sel.(type) {
	case cdt.ByIndex:
		if remove {
			return as.ListRemoveByIndexOp(bin, s.Index, lrt, ctx...), nil
		}
		return as.ListGetByIndexOp(bin, s.Index, lrt, ctx...), nil
	case cdt.ByIndexRange:
		if err := checkCount(s.Count, s.ToEnd); err != nil {
			return nil, err
		}
		switch {
		case s.ToEnd && remove:
			return as.ListRemoveByIndexRangeOp(bin, s.Index, lrt, ctx...), nil
		case s.ToEnd:
			return as.ListGetByIndexRangeOp(bin, s.Index, lrt, ctx...), nil
		case remove:
			return as.ListRemoveByIndexRangeCountOp(bin, s.Index, s.Count, lrt, ctx...), nil
		default:
			return as.ListGetByIndexRangeCountOp(bin, s.Index, s.Count, lrt, ctx...), nil
		}
	case cdt.ByRank:
		if remove {
			return as.ListRemoveByRankOp(bin, s.Rank, lrt, ctx...), nil
		}
		return as.ListGetByRankOp(bin, s.Rank, lrt, ctx...), nil
	case cdt.ByRankRange:
		if err := checkCount(s.Count, s.ToEnd); err != nil {
			return nil, err
		}
		switch {
		case s.ToEnd && remove:
			return as.ListRemoveByRankRangeOp(bin, s.Rank, lrt, ctx...), nil
		case s.ToEnd:
			return as.ListGetByRankRangeOp(bin, s.Rank, lrt, ctx...), nil
		case remove:
			return as.ListRemoveByRankRangeCountOp(bin, s.Rank, s.Count, lrt, ctx...), nil
		default:
			return as.ListGetByRankRangeCountOp(bin, s.Rank, s.Count, lrt, ctx...), nil
		}
	case cdt.ByValue:
		v, err := toClientValues([]any{s.Value})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.ListRemoveByValueOp(bin, v[0], lrt, ctx...), nil
		}
		return as.ListGetByValueOp(bin, v[0], lrt, ctx...), nil
	case cdt.ByValueList:
		values, err := toClientValues(s.Values)
		if err != nil {
			return nil, err
		}
		if remove {
			return as.ListRemoveByValueListOp(bin, values, lrt, ctx...), nil
		}
		return as.ListGetByValueListOp(bin, values, lrt, ctx...), nil
	case cdt.ByValueRange:
		bounds, err := toClientValues([]any{s.Begin, s.End})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.ListRemoveByValueRangeOp(bin, bounds[0], bounds[1], lrt, ctx...), nil
		}
		return as.ListGetByValueRangeOp(bin, bounds[0], bounds[1], lrt, ctx...), nil
	}
	return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("selector %v is not valid for lists", sel))
}

// mapSelectOp builds the get_by or remove_by operation for a map selector.
func mapSelectOp(bin string, path []cdt.CtxStep, sel cdt.Selector, rt cdt.ReturnType, inverted, remove bool) (*as.Operation, error) {
	ctx, err := translateCtx(path)
	if err != nil {
		return nil, err
	}

	mrt := as.MapReturnType.NONE
	switch rt {
	case cdt.ReturnNone:
	case cdt.ReturnValue:
		mrt = as.MapReturnType.VALUE
	case cdt.ReturnIndex:
		mrt = as.MapReturnType.INDEX
	case cdt.ReturnReverseIndex:
		mrt = as.MapReturnType.REVERSE_INDEX
	case cdt.ReturnRank:
		mrt = as.MapReturnType.RANK
	case cdt.ReturnReverseRank:
		mrt = as.MapReturnType.REVERSE_RANK
	case cdt.ReturnCount:
		mrt = as.MapReturnType.COUNT
	case cdt.ReturnExists:
		mrt = as.MapReturnType.EXISTS
	case cdt.ReturnKey:
		mrt = as.MapReturnType.KEY
	case cdt.ReturnKeyValue:
		mrt = as.MapReturnType.KEY_VALUE
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown return type %s", rt))
	}
	if inverted {
		mrt |= as.MapReturnType.INVERTED
	}

	switch s := sel.(type) {
	case cdt.ByKey:
		k, err := toClientValues([]any{s.Key})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByKeyOp(bin, k[0], mrt, ctx...), nil
		}
		return as.MapGetByKeyOp(bin, k[0], mrt, ctx...), nil
	case cdt.ByKeyList:
		keys, err := toClientValues(s.Keys)
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByKeyListOp(bin, keys, mrt, ctx...), nil
		}
		return as.MapGetByKeyListOp(bin, keys, mrt, ctx...), nil
	case cdt.ByKeyRange:
		bounds, err := toClientValues([]any{s.Begin, s.End})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByKeyRangeOp(bin, bounds[0], bounds[1], mrt, ctx...), nil
		}
		return as.MapGetByKeyRangeOp(bin, bounds[0], bounds[1], mrt, ctx...), nil
	case cdt.ByIndex:
		if remove {
			return as.MapRemoveByIndexOp(bin, s.Index, mrt, ctx...), nil
		}
		return as.MapGetByIndexOp(bin, s.Index, mrt, ctx...), nil
	case cdt.ByIndexRange:
		if err := checkCount(s.Count, s.ToEnd); err != nil {
			return nil, err
		}
		switch {
		case s.ToEnd && remove:
			return as.MapRemoveByIndexRangeOp(bin, s.Index, mrt, ctx...), nil
		case s.ToEnd:
			return as.MapGetByIndexRangeOp(bin, s.Index, mrt, ctx...), nil
		case remove:
			return as.MapRemoveByIndexRangeCountOp(bin, s.Index, s.Count, mrt, ctx...), nil
		default:
			return as.MapGetByIndexRangeCountOp(bin, s.Index, s.Count, mrt, ctx...), nil
		}
	case cdt.ByRank:
		if remove {
			return as.MapRemoveByRankOp(bin, s.Rank, mrt, ctx...), nil
		}
		return as.MapGetByRankOp(bin, s.Rank, mrt, ctx...), nil
	case cdt.ByRankRange:
		if err := checkCount(s.Count, s.ToEnd); err != nil {
			return nil, err
		}
		switch {
		case s.ToEnd && remove:
			return as.MapRemoveByRankRangeOp(bin, s.Rank, mrt, ctx...), nil
		case s.ToEnd:
			return as.MapGetByRankRangeOp(bin, s.Rank, mrt, ctx...), nil
		case remove:
			return as.MapRemoveByRankRangeCountOp(bin, s.Rank, s.Count, mrt, ctx...), nil
		default:
			return as.MapGetByRankRangeCountOp(bin, s.Rank, s.Count, mrt, ctx...), nil
		}
	case cdt.ByValue:
		v, err := toClientValues([]any{s.Value})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByValueOp(bin, v[0], mrt, ctx...), nil
		}
		return as.MapGetByValueOp(bin, v[0], mrt, ctx...), nil
	case cdt.ByValueList:
		values, err := toClientValues(s.Values)
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByValueListOp(bin, values, mrt, ctx...), nil
		}
		return as.MapGetByValueListOp(bin, values, mrt, ctx...), nil
	case cdt.ByValueRange:
		bounds, err := toClientValues([]any{s.Begin, s.End})
		if err != nil {
			return nil, err
		}
		if remove {
			return as.MapRemoveByValueRangeOp(bin, bounds[0], bounds[1], mrt, ctx...), nil
		}
		return as.MapGetByValueRangeOp(bin, bounds[0], bounds[1], mrt, ctx...), nil
	}
	return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown selector %v", sel))
}

func checkCount(count int, toEnd bool) error {
	if !toEnd && count < 0 {
		return store.NewError(store.RetCInvalidOperation, fmt.Sprintf("negative count %d", count))
	}
	return nil
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// opResults orders the bins returned by an operate call by operation.
// The client is asked to respond per operation, so a bin targeted by several
// operations holds an as.OpResults with one entry per operation. Plain bin
// writes get no entry from the server and keep a nil result.
func opResults(ops []record.Operation, rec *as.Record) ([]any, error) {
	results := make([]any, len(ops))
	if rec == nil {
		return results, nil
	}

	seen := make(map[string]int, len(ops))
	for i, op := range ops {
		if _, ok := op.(record.Put); ok {
			continue
		}
		bin := op.BinName()
		raw := rec.Bins[bin]
		if multi, ok := raw.(as.OpResults); ok {
			n := seen[bin]
			seen[bin]++
			if n >= len(multi) {
				continue
			}
			raw = multi[n]
		}
		v, err := fromClient(raw)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("result of %v: %v", op, err))
		}
		results[i] = v
	}
	return results, nil
}

// fromClientRecord converts a record read from the cluster.
func fromClientRecord(key string, rec *as.Record) (*record.Record, error) {
	bins := make(record.Bins, len(rec.Bins))
	for name, raw := range rec.Bins {
		v, err := fromClient(raw)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("bin %s of %q: %v", name, key, err))
		}
		bins[name] = v
	}
	return &record.Record{Key: key, Bins: bins, Generation: rec.Generation}, nil
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// retCode maps an aerospike result code to the store.RetCode of the same condition.
// rankOnly tells whether the point selectors of the request are all rank selectors,
// which decides how OP_NOT_APPLICABLE is reported.
func retCode(rc types.ResultCode, rankOnly bool) store.RetCode {
	switch rc {
	case types.OK:
		return store.RetCSuccess
	case types.KEY_NOT_FOUND_ERROR:
		return store.RetCRecordNotFound
	case types.BIN_NOT_FOUND:
		return store.RetCBinNotFound
	case types.PARAMETER_ERROR:
		return store.RetCInvalidOperation
	case types.OP_NOT_APPLICABLE:
		if rankOnly {
			return store.RetCRankOutOfRange
		}
		return store.RetCIndexOutOfRange
	case types.BIN_TYPE_ERROR:
		return store.RetCTypeMismatch
	case types.ELEMENT_NOT_FOUND:
		return store.RetCElementNotFound
	case types.UDF_BAD_RESPONSE:
		return store.RetCUDFError
	case types.UNSUPPORTED_FEATURE:
		return store.RetCUnsupportedOperation
	case types.MAX_ERROR_RATE:
		return store.RetCMaxErrorRate
	case types.TIMEOUT:
		return store.RetCTimeout
	}
	// negative codes are raised by the client itself
	if rc < 0 {
		return store.RetCClientError
	}
	return store.RetCInternalError
}

// rankOnly reports whether ops select single elements by rank only.
func rankOnly(ops []record.Operation) bool {
	found := false
	for _, op := range ops {
		var sel cdt.Selector
		switch o := op.(type) {
		case record.ListGetBy:
			sel = o.Selector
		case record.ListRemoveBy:
			sel = o.Selector
		case record.MapGetBy:
			sel = o.Selector
		case record.MapRemoveBy:
			sel = o.Selector
		}
		switch sel.(type) {
		case cdt.ByRank:
			found = true
		case cdt.ByIndex:
			return false
		}
	}
	return found
}

// translateError converts an error of the client into a *store.Error.
func translateError(err error, ops []record.Operation) *store.Error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}
	var ae *as.AerospikeError
	if errors.As(err, &ae) {
		return store.NewError(retCode(ae.ResultCode, rankOnly(ops)), ae.Error())
	}
	return store.NewError(store.RetCClientError, err.Error())
}
