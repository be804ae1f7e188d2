package record

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// --------------------------------------------------------------------------
// Record Encoding
// --------------------------------------------------------------------------

// recordVersion is the first byte of every encoded record.
const recordVersion = 1

// Encode serializes the bins and generation of rec (the key is stored by the caller).
// Format: version byte, uvarint generation, uvarint bin count, then per bin
// (in sorted order) the name and the value.
func Encode(rec *Record) ([]byte, error) {
	buf := []byte{recordVersion}
	buf = binary.AppendUvarint(buf, uint64(rec.Generation))
	buf = binary.AppendUvarint(buf, uint64(len(rec.Bins)))

	var err error
	for _, name := range rec.BinNames() {
		buf = cdt.AppendString(buf, name)
		if buf, err = cdt.AppendValue(buf, rec.Bins[name]); err != nil {
			return nil, fmt.Errorf("bin %q: %w", name, err)
		}
	}
	return buf, nil
}

// Decode deserializes a record written by Encode.
func Decode(key string, data []byte) (*Record, error) {
	r := cdt.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported record version %d", cdt.ErrMalformed, version)
	}
	gen, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}

	rec := &Record{Key: key, Bins: make(Bins, n), Generation: uint32(gen)}
	for i := 0; i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if rec.Bins[name], err = r.ReadValue(); err != nil {
			return nil, err
		}
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after record", cdt.ErrMalformed, r.Remaining())
	}
	return rec, nil
}

// EncodeBins serializes the bins of a put request. Bins with a nil value are
// kept, they remove the bin when the put is applied.
func EncodeBins(bins Bins) ([]byte, error) {
	return Encode(&Record{Bins: bins})
}

// DecodeBins deserializes bins written by EncodeBins.
func DecodeBins(data []byte) (Bins, error) {
	rec, err := Decode("", data)
	if err != nil {
		return nil, err
	}
	return rec.Bins, nil
}

// EncodeValues serializes a sequence of values, e.g. operation results or UDF arguments.
func EncodeValues(values []any) ([]byte, error) {
	return appendValues(nil, values)
}

// DecodeValues deserializes a sequence written by EncodeValues.
func DecodeValues(data []byte) ([]any, error) {
	r := cdt.NewReader(data)
	values, err := readValues(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after values", cdt.ErrMalformed, r.Remaining())
	}
	return values, nil
}

func appendValues(dst []byte, values []any) ([]byte, error) {
	dst = binary.AppendUvarint(dst, uint64(len(values)))
	var err error
	for _, v := range values {
		if dst, err = cdt.AppendValue(dst, v); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func readValues(r *cdt.Reader) ([]any, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	values := make([]any, n)
	for i := range values {
		if values[i], err = r.ReadValue(); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// --------------------------------------------------------------------------
// Operation Encoding
// --------------------------------------------------------------------------

// opKind identifies the operation type in the binary encoding.
type opKind uint8

const (
	opGet opKind = iota + 1
	opPut
	opListAppend
	opListInsert
	opListSize
	opListClear
	opListGetBy
	opListRemoveBy
	opListSetOrder
	opListSort
	opMapPut
	opMapSize
	opMapClear
	opMapGetBy
	opMapRemoveBy
)

// EncodeOps serializes a list of operations.
// Each operation is written as kind byte, bin name, context path and the
// kind specific fields.
func EncodeOps(ops []Operation) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(ops)))
	var err error
	for _, op := range ops {
		if buf, err = appendOp(buf, op); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op, err)
		}
	}
	return buf, nil
}

// DecodeOps deserializes operations written by EncodeOps.
func DecodeOps(data []byte) ([]Operation, error) {
	r := cdt.NewReader(data)
	ops, err := ReadOps(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after operations", cdt.ErrMalformed, r.Remaining())
	}
	return ops, nil
}

// AppendOps appends the encoding of ops to dst.
func AppendOps(dst []byte, ops []Operation) ([]byte, error) {
	b, err := EncodeOps(ops)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

// ReadOps reads operations written by AppendOps.
func ReadOps(r *cdt.Reader) ([]Operation, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	ops := make([]Operation, n)
	for i := range ops {
		if ops[i], err = readOp(r); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func appendOp(buf []byte, op Operation) ([]byte, error) {
	var err error
	header := func(kind opKind, bin string, ctx []cdt.CtxStep) {
		buf = append(buf, byte(kind))
		buf = cdt.AppendString(buf, bin)
		if err == nil {
			buf, err = appendCtx(buf, ctx)
		}
	}

	switch o := op.(type) {
	case Get:
		header(opGet, o.Bin, nil)
	case Put:
		header(opPut, o.Bin, nil)
		buf, err = cdt.AppendValue(buf, o.Value)
	case ListAppend:
		header(opListAppend, o.Bin, o.Ctx)
		buf, err = appendValuesIf(buf, err, o.Values)
	case ListInsert:
		header(opListInsert, o.Bin, o.Ctx)
		buf = cdt.AppendVarint(buf, int64(o.Index))
		buf, err = appendValuesIf(buf, err, o.Values)
	case ListSize:
		header(opListSize, o.Bin, o.Ctx)
	case ListClear:
		header(opListClear, o.Bin, o.Ctx)
	case ListGetBy:
		header(opListGetBy, o.Bin, o.Ctx)
		buf, err = appendSelection(buf, err, o.Selector, o.Return, o.Inverted)
	case ListRemoveBy:
		header(opListRemoveBy, o.Bin, o.Ctx)
		buf, err = appendSelection(buf, err, o.Selector, o.Return, o.Inverted)
	case ListSetOrder:
		header(opListSetOrder, o.Bin, o.Ctx)
		buf = append(buf, byte(o.Order))
	case ListSort:
		header(opListSort, o.Bin, o.Ctx)
		buf = append(buf, byte(o.Flags))
	case MapPut:
		header(opMapPut, o.Bin, o.Ctx)
		if err == nil {
			buf, err = cdt.AppendValue(buf, o.Key)
		}
		if err == nil {
			buf, err = cdt.AppendValue(buf, o.Value)
		}
	case MapSize:
		header(opMapSize, o.Bin, o.Ctx)
	case MapClear:
		header(opMapClear, o.Bin, o.Ctx)
	case MapGetBy:
		header(opMapGetBy, o.Bin, o.Ctx)
		buf, err = appendSelection(buf, err, o.Selector, o.Return, o.Inverted)
	case MapRemoveBy:
		header(opMapRemoveBy, o.Bin, o.Ctx)
		buf, err = appendSelection(buf, err, o.Selector, o.Return, o.Inverted)
	default:
		return nil, fmt.Errorf("%w: unknown operation %T", cdt.ErrInvalidParam, op)
	}
	return buf, err
}

func appendValuesIf(buf []byte, err error, values []any) ([]byte, error) {
	if err != nil {
		return buf, err
	}
	return appendValues(buf, values)
}

func appendSelection(buf []byte, err error, sel cdt.Selector, rt cdt.ReturnType, inverted bool) ([]byte, error) {
	if err != nil {
		return buf, err
	}
	if buf, err = appendSelector(buf, sel); err != nil {
		return nil, err
	}
	buf = append(buf, byte(rt))
	if inverted {
		return append(buf, 1), nil
	}
	return append(buf, 0), nil
}

func readOp(r *cdt.Reader) (Operation, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	bin, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	ctx, err := readCtx(r)
	if err != nil {
		return nil, err
	}

	switch opKind(kind) {
	case opGet:
		return Get{Bin: bin}, nil
	case opPut:
		v, err := r.ReadValue()
		return Put{Bin: bin, Value: v}, err
	case opListAppend:
		values, err := readValues(r)
		return ListAppend{Bin: bin, Ctx: ctx, Values: values}, err
	case opListInsert:
		index, err := r.ReadVarint()
		if err != nil {
			return nil, err
		}
		values, err := readValues(r)
		return ListInsert{Bin: bin, Ctx: ctx, Index: int(index), Values: values}, err
	case opListSize:
		return ListSize{Bin: bin, Ctx: ctx}, nil
	case opListClear:
		return ListClear{Bin: bin, Ctx: ctx}, nil
	case opListGetBy, opListRemoveBy, opMapGetBy, opMapRemoveBy:
		sel, rt, inverted, err := readSelection(r)
		if err != nil {
			return nil, err
		}
		switch opKind(kind) {
		case opListGetBy:
			return ListGetBy{Bin: bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: inverted}, nil
		case opListRemoveBy:
			return ListRemoveBy{Bin: bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: inverted}, nil
		case opMapGetBy:
			return MapGetBy{Bin: bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: inverted}, nil
		default:
			return MapRemoveBy{Bin: bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: inverted}, nil
		}
	case opListSetOrder:
		order, err := r.ReadByte()
		return ListSetOrder{Bin: bin, Ctx: ctx, Order: cdt.Order(order)}, err
	case opListSort:
		flags, err := r.ReadByte()
		return ListSort{Bin: bin, Ctx: ctx, Flags: cdt.SortFlags(flags)}, err
	case opMapPut:
		key, err := r.ReadValue()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadValue()
		return MapPut{Bin: bin, Ctx: ctx, Key: key, Value: value}, err
	case opMapSize:
		return MapSize{Bin: bin, Ctx: ctx}, nil
	case opMapClear:
		return MapClear{Bin: bin, Ctx: ctx}, nil
	}
	return nil, fmt.Errorf("%w: unknown operation kind %d", cdt.ErrMalformed, kind)
}

func readSelection(r *cdt.Reader) (cdt.Selector, cdt.ReturnType, bool, error) {
	sel, err := readSelector(r)
	if err != nil {
		return nil, 0, false, err
	}
	rt, err := r.ReadByte()
	if err != nil {
		return nil, 0, false, err
	}
	inverted, err := r.ReadByte()
	if err != nil {
		return nil, 0, false, err
	}
	return sel, cdt.ReturnType(rt), inverted == 1, nil
}

// --------------------------------------------------------------------------
// Selector and Context Encoding
// --------------------------------------------------------------------------

const (
	selIndex byte = iota + 1
	selIndexRange
	selRank
	selRankRange
	selValue
	selValueList
	selValueRange
	selKey
	selKeyList
	selKeyRange
)

func appendRange(buf []byte, pos, count int, toEnd bool) []byte {
	buf = cdt.AppendVarint(buf, int64(pos))
	buf = cdt.AppendVarint(buf, int64(count))
	if toEnd {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendPair(buf []byte, a, b any) ([]byte, error) {
	buf, err := cdt.AppendValue(buf, a)
	if err != nil {
		return nil, err
	}
	return cdt.AppendValue(buf, b)
}

func appendSelector(buf []byte, sel cdt.Selector) ([]byte, error) {
	switch s := sel.(type) {
	case cdt.ByIndex:
		return cdt.AppendVarint(append(buf, selIndex), int64(s.Index)), nil
	case cdt.ByIndexRange:
		return appendRange(append(buf, selIndexRange), s.Index, s.Count, s.ToEnd), nil
	case cdt.ByRank:
		return cdt.AppendVarint(append(buf, selRank), int64(s.Rank)), nil
	case cdt.ByRankRange:
		return appendRange(append(buf, selRankRange), s.Rank, s.Count, s.ToEnd), nil
	case cdt.ByValue:
		return cdt.AppendValue(append(buf, selValue), s.Value)
	case cdt.ByValueList:
		return appendValues(append(buf, selValueList), s.Values)
	case cdt.ByValueRange:
		return appendPair(append(buf, selValueRange), s.Begin, s.End)
	case cdt.ByKey:
		return cdt.AppendValue(append(buf, selKey), s.Key)
	case cdt.ByKeyList:
		return appendValues(append(buf, selKeyList), s.Keys)
	case cdt.ByKeyRange:
		return appendPair(append(buf, selKeyRange), s.Begin, s.End)
	}
	return nil, fmt.Errorf("%w: unknown selector %T", cdt.ErrInvalidParam, sel)
}

func readRange(r *cdt.Reader) (int, int, bool, error) {
	pos, err := r.ReadVarint()
	if err != nil {
		return 0, 0, false, err
	}
	count, err := r.ReadVarint()
	if err != nil {
		return 0, 0, false, err
	}
	toEnd, err := r.ReadByte()
	return int(pos), int(count), toEnd == 1, err
}

func readPair(r *cdt.Reader) (any, any, error) {
	a, err := r.ReadValue()
	if err != nil {
		return nil, nil, err
	}
	b, err := r.ReadValue()
	return a, b, err
}

func readSelector(r *cdt.Reader) (cdt.Selector, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case selIndex:
		i, err := r.ReadVarint()
		return cdt.ByIndex{Index: int(i)}, err
	case selIndexRange:
		pos, count, toEnd, err := readRange(r)
		return cdt.ByIndexRange{Index: pos, Count: count, ToEnd: toEnd}, err
	case selRank:
		i, err := r.ReadVarint()
		return cdt.ByRank{Rank: int(i)}, err
	case selRankRange:
		pos, count, toEnd, err := readRange(r)
		return cdt.ByRankRange{Rank: pos, Count: count, ToEnd: toEnd}, err
	case selValue:
		v, err := r.ReadValue()
		return cdt.ByValue{Value: v}, err
	case selValueList:
		values, err := readValues(r)
		return cdt.ByValueList{Values: values}, err
	case selValueRange:
		begin, end, err := readPair(r)
		return cdt.ByValueRange{Begin: begin, End: end}, err
	case selKey:
		v, err := r.ReadValue()
		return cdt.ByKey{Key: v}, err
	case selKeyList:
		keys, err := readValues(r)
		return cdt.ByKeyList{Keys: keys}, err
	case selKeyRange:
		begin, end, err := readPair(r)
		return cdt.ByKeyRange{Begin: begin, End: end}, err
	}
	return nil, fmt.Errorf("%w: unknown selector tag %d", cdt.ErrMalformed, tag)
}

const (
	ctxListIndex byte = iota + 1
	ctxListRank
	ctxListValue
	ctxMapIndex
	ctxMapRank
	ctxMapKey
	ctxMapValue
)

func appendCtx(buf []byte, ctx []cdt.CtxStep) ([]byte, error) {
	buf = binary.AppendUvarint(buf, uint64(len(ctx)))
	var err error
	for _, step := range ctx {
		switch s := step.(type) {
		case cdt.CtxListIndex:
			buf = cdt.AppendVarint(append(buf, ctxListIndex), int64(s.Index))
		case cdt.CtxListRank:
			buf = cdt.AppendVarint(append(buf, ctxListRank), int64(s.Rank))
		case cdt.CtxListValue:
			buf, err = cdt.AppendValue(append(buf, ctxListValue), s.Value)
		case cdt.CtxMapIndex:
			buf = cdt.AppendVarint(append(buf, ctxMapIndex), int64(s.Index))
		case cdt.CtxMapRank:
			buf = cdt.AppendVarint(append(buf, ctxMapRank), int64(s.Rank))
		case cdt.CtxMapKey:
			buf, err = cdt.AppendValue(append(buf, ctxMapKey), s.Key)
		case cdt.CtxMapValue:
			buf, err = cdt.AppendValue(append(buf, ctxMapValue), s.Value)
		default:
			return nil, fmt.Errorf("%w: unknown context step %T", cdt.ErrInvalidParam, step)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func readCtx(r *cdt.Reader) ([]cdt.CtxStep, error) {
	n, err := r.ReadLen()
	if err != nil || n == 0 {
		return nil, err
	}
	ctx := make([]cdt.CtxStep, n)
	for i := range ctx {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case ctxListIndex, ctxListRank, ctxMapIndex, ctxMapRank:
			pos, err := r.ReadVarint()
			if err != nil {
				return nil, err
			}
			switch tag {
			case ctxListIndex:
				ctx[i] = cdt.CtxListIndex{Index: int(pos)}
			case ctxListRank:
				ctx[i] = cdt.CtxListRank{Rank: int(pos)}
			case ctxMapIndex:
				ctx[i] = cdt.CtxMapIndex{Index: int(pos)}
			default:
				ctx[i] = cdt.CtxMapRank{Rank: int(pos)}
			}
		case ctxListValue, ctxMapKey, ctxMapValue:
			v, err := r.ReadValue()
			if err != nil {
				return nil, err
			}
			switch tag {
			case ctxListValue:
				ctx[i] = cdt.CtxListValue{Value: v}
			case ctxMapKey:
				ctx[i] = cdt.CtxMapKey{Key: v}
			default:
				ctx[i] = cdt.CtxMapValue{Value: v}
			}
		default:
			return nil, fmt.Errorf("%w: unknown context tag %d", cdt.ErrMalformed, tag)
		}
	}
	return ctx, nil
}
