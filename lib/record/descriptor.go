package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// --------------------------------------------------------------------------
// JSON Operation Descriptors
// --------------------------------------------------------------------------

// Descriptor is the JSON form of an operation, as accepted by the command
// line. It is converted into a typed Operation with Operation(); fields that
// do not belong to the chosen op or selector are rejected there.
//
//	{"op": "list_get_by", "bin": "l", "by": "index_range", "index": 0, "count": 3, "return": "value"}
type Descriptor struct {
	Op       string          `json:"op"`
	Bin      string          `json:"bin"`
	Ctx      []CtxDescriptor `json:"ctx,omitempty"`
	By       string          `json:"by,omitempty"` // selector: index, index_range, rank, rank_range, value, value_list, value_range, key, key_list, key_range
	Index    *int            `json:"index,omitempty"`
	Count    *int            `json:"count,omitempty"`
	Rank     *int            `json:"rank,omitempty"`
	Value    any             `json:"value,omitempty"`
	Values   []any           `json:"values,omitempty"`
	Key      any             `json:"key,omitempty"`
	Keys     []any           `json:"keys,omitempty"`
	Begin    any             `json:"begin,omitempty"`
	End      any             `json:"end,omitempty"`
	Return   string          `json:"return,omitempty"`
	Inverted bool            `json:"inverted,omitempty"`
	Order    string          `json:"order,omitempty"` // ordered or unordered
	DropDups bool            `json:"drop_duplicates,omitempty"`
}

// CtxDescriptor is the JSON form of a context step.
//
//	{"type": "map_key", "key": "scores"}
type CtxDescriptor struct {
	Type  string `json:"type"` // list_index, list_rank, list_value, map_index, map_rank, map_key, map_value
	Index int    `json:"index,omitempty"`
	Rank  int    `json:"rank,omitempty"`
	Value any    `json:"value,omitempty"`
	Key   any    `json:"key,omitempty"`
}

// ParseOperations decodes a JSON array of descriptors into operations.
// Numbers without a fraction become int64.
func ParseOperations(data []byte) ([]Operation, error) {
	var descs []Descriptor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&descs); err != nil {
		return nil, fmt.Errorf("%w: %v", cdt.ErrInvalidParam, err)
	}
	ops := make([]Operation, len(descs))
	for i, d := range descs {
		op, err := d.Operation()
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

// ParseBins decodes a JSON object into normalized bins.
func ParseBins(data []byte) (Bins, error) {
	var bins map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&bins); err != nil {
		return nil, fmt.Errorf("%w: %v", cdt.ErrInvalidParam, err)
	}
	return NormalizeBins(bins)
}

// Operation converts the descriptor into a typed Operation.
func (d Descriptor) Operation() (Operation, error) {
	ctx, err := d.context()
	if err != nil {
		return nil, err
	}
	if (d.Op == "get" || d.Op == "put") && len(ctx) > 0 {
		return nil, invalid("op %q does not take a context", d.Op)
	}

	switch d.Op {
	case "get":
		return Get{Bin: d.Bin}, nil
	case "put":
		v, err := cdt.Normalize(d.Value)
		return Put{Bin: d.Bin, Value: v}, err
	case "list_append":
		values, err := normalizeAll(d.Values)
		return ListAppend{Bin: d.Bin, Ctx: ctx, Values: values}, err
	case "list_insert":
		if d.Index == nil {
			return nil, invalid("list_insert requires index")
		}
		values, err := normalizeAll(d.Values)
		return ListInsert{Bin: d.Bin, Ctx: ctx, Index: *d.Index, Values: values}, err
	case "list_size":
		return ListSize{Bin: d.Bin, Ctx: ctx}, nil
	case "list_clear":
		return ListClear{Bin: d.Bin, Ctx: ctx}, nil
	case "list_set_order":
		switch d.Order {
		case "ordered":
			return ListSetOrder{Bin: d.Bin, Ctx: ctx, Order: cdt.Ordered}, nil
		case "unordered", "":
			return ListSetOrder{Bin: d.Bin, Ctx: ctx, Order: cdt.Unordered}, nil
		}
		return nil, invalid("unknown order %q", d.Order)
	case "list_sort":
		flags := cdt.SortDefault
		if d.DropDups {
			flags |= cdt.SortDropDuplicates
		}
		return ListSort{Bin: d.Bin, Ctx: ctx, Flags: flags}, nil
	case "map_put":
		key, err := cdt.Normalize(d.Key)
		if err != nil {
			return nil, err
		}
		value, err := cdt.Normalize(d.Value)
		return MapPut{Bin: d.Bin, Ctx: ctx, Key: key, Value: value}, err
	case "map_size":
		return MapSize{Bin: d.Bin, Ctx: ctx}, nil
	case "map_clear":
		return MapClear{Bin: d.Bin, Ctx: ctx}, nil
	case "list_get_by", "list_remove_by", "map_get_by", "map_remove_by":
		sel, err := d.selector()
		if err != nil {
			return nil, err
		}
		rt := cdt.ReturnValue
		if d.Return != "" {
			if rt, err = parseReturn(d.Return); err != nil {
				return nil, err
			}
		}
		switch d.Op {
		case "list_get_by":
			return ListGetBy{Bin: d.Bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: d.Inverted}, nil
		case "list_remove_by":
			return ListRemoveBy{Bin: d.Bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: d.Inverted}, nil
		case "map_get_by":
			return MapGetBy{Bin: d.Bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: d.Inverted}, nil
		default:
			return MapRemoveBy{Bin: d.Bin, Ctx: ctx, Selector: sel, Return: rt, Inverted: d.Inverted}, nil
		}
	}
	return nil, invalid("unknown op %q", d.Op)
}

func (d Descriptor) selector() (cdt.Selector, error) {
	pos := func(name string, p *int) (int, error) {
		if p == nil {
			return 0, invalid("selector %q requires %s", d.By, name)
		}
		return *p, nil
	}
	count := func() (int, bool) {
		if d.Count == nil {
			return 0, true
		}
		return *d.Count, false
	}

	switch d.By {
	case "index":
		i, err := pos("index", d.Index)
		return cdt.ByIndex{Index: i}, err
	case "index_range":
		i, err := pos("index", d.Index)
		c, toEnd := count()
		return cdt.ByIndexRange{Index: i, Count: c, ToEnd: toEnd}, err
	case "rank":
		r, err := pos("rank", d.Rank)
		return cdt.ByRank{Rank: r}, err
	case "rank_range":
		r, err := pos("rank", d.Rank)
		c, toEnd := count()
		return cdt.ByRankRange{Rank: r, Count: c, ToEnd: toEnd}, err
	case "value":
		v, err := cdt.Normalize(d.Value)
		return cdt.ByValue{Value: v}, err
	case "value_list":
		values, err := normalizeAll(d.Values)
		return cdt.ByValueList{Values: values}, err
	case "value_range":
		begin, end, err := normalizePair(d.Begin, d.End)
		return cdt.ByValueRange{Begin: begin, End: end}, err
	case "key":
		k, err := cdt.Normalize(d.Key)
		return cdt.ByKey{Key: k}, err
	case "key_list":
		keys, err := normalizeAll(d.Keys)
		return cdt.ByKeyList{Keys: keys}, err
	case "key_range":
		begin, end, err := normalizePair(d.Begin, d.End)
		return cdt.ByKeyRange{Begin: begin, End: end}, err
	}
	return nil, invalid("unknown selector %q", d.By)
}

func (d Descriptor) context() ([]cdt.CtxStep, error) {
	if len(d.Ctx) == 0 {
		return nil, nil
	}
	ctx := make([]cdt.CtxStep, len(d.Ctx))
	for i, c := range d.Ctx {
		var err error
		switch c.Type {
		case "list_index":
			ctx[i] = cdt.CtxListIndex{Index: c.Index}
		case "list_rank":
			ctx[i] = cdt.CtxListRank{Rank: c.Rank}
		case "list_value":
			var v any
			v, err = cdt.Normalize(c.Value)
			ctx[i] = cdt.CtxListValue{Value: v}
		case "map_index":
			ctx[i] = cdt.CtxMapIndex{Index: c.Index}
		case "map_rank":
			ctx[i] = cdt.CtxMapRank{Rank: c.Rank}
		case "map_key":
			var k any
			k, err = cdt.Normalize(c.Key)
			ctx[i] = cdt.CtxMapKey{Key: k}
		case "map_value":
			var v any
			v, err = cdt.Normalize(c.Value)
			ctx[i] = cdt.CtxMapValue{Value: v}
		default:
			return nil, invalid("unknown context step %q", c.Type)
		}
		if err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// parseReturn accepts snake case return type names, e.g. "reverse_rank".
func parseReturn(name string) (cdt.ReturnType, error) {
	names := map[string]cdt.ReturnType{
		"none":          cdt.ReturnNone,
		"value":         cdt.ReturnValue,
		"index":         cdt.ReturnIndex,
		"reverse_index": cdt.ReturnReverseIndex,
		"rank":          cdt.ReturnRank,
		"reverse_rank":  cdt.ReturnReverseRank,
		"count":         cdt.ReturnCount,
		"exists":        cdt.ReturnExists,
		"key":           cdt.ReturnKey,
		"key_value":     cdt.ReturnKeyValue,
	}
	if rt, ok := names[name]; ok {
		return rt, nil
	}
	return cdt.ParseReturnType(name)
}

func normalizeAll(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		n, err := cdt.Normalize(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func normalizePair(a, b any) (any, any, error) {
	na, err := cdt.Normalize(a)
	if err != nil {
		return nil, nil, err
	}
	nb, err := cdt.Normalize(b)
	return na, nb, err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", cdt.ErrInvalidParam, fmt.Sprintf(format, args...))
}
