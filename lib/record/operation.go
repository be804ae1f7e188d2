package record

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Operation is a single step of an Operate call against one bin.
// The set of operations is closed; only the types in this file implement it.
type Operation interface {
	fmt.Stringer
	// BinName returns the bin the operation works on.
	BinName() string
	// IsWrite reports whether the operation may change the record.
	IsWrite() bool
	apply(rec *Record) (any, error)
}

// Get returns the value of a bin, nil if the bin does not exist.
type Get struct {
	Bin string
}

// Put sets a bin. A nil value removes the bin.
type Put struct {
	Bin   string
	Value any
}

// ListAppend appends values to a list and returns the new size.
// A missing bin is created as an unordered list.
type ListAppend struct {
	Bin    string
	Ctx    []cdt.CtxStep
	Values []any
}

// ListInsert inserts values before Index and returns the new size.
type ListInsert struct {
	Bin    string
	Ctx    []cdt.CtxStep
	Index  int
	Values []any
}

// ListSize returns the number of list elements.
type ListSize struct {
	Bin string
	Ctx []cdt.CtxStep
}

// ListClear removes all list elements.
type ListClear struct {
	Bin string
	Ctx []cdt.CtxStep
}

// ListGetBy returns the list elements selected by Selector rendered as Return.
type ListGetBy struct {
	Bin      string
	Ctx      []cdt.CtxStep
	Selector cdt.Selector
	Return   cdt.ReturnType
	Inverted bool
}

// ListRemoveBy removes the selected list elements and returns them rendered as Return.
type ListRemoveBy struct {
	Bin      string
	Ctx      []cdt.CtxStep
	Selector cdt.Selector
	Return   cdt.ReturnType
	Inverted bool
}

// ListSetOrder changes the ordering mode of a list. A missing bin is created empty.
type ListSetOrder struct {
	Bin   string
	Ctx   []cdt.CtxStep
	Order cdt.Order
}

// ListSort sorts a list.
type ListSort struct {
	Bin   string
	Ctx   []cdt.CtxStep
	Flags cdt.SortFlags
}

// MapPut stores Value under Key and returns the new map size.
// A missing bin is created as an empty map.
type MapPut struct {
	Bin   string
	Ctx   []cdt.CtxStep
	Key   any
	Value any
}

// MapSize returns the number of map entries.
type MapSize struct {
	Bin string
	Ctx []cdt.CtxStep
}

// MapClear removes all map entries.
type MapClear struct {
	Bin string
	Ctx []cdt.CtxStep
}

// MapGetBy returns the map entries selected by Selector rendered as Return.
type MapGetBy struct {
	Bin      string
	Ctx      []cdt.CtxStep
	Selector cdt.Selector
	Return   cdt.ReturnType
	Inverted bool
}

// MapRemoveBy removes the selected map entries and returns them rendered as Return.
type MapRemoveBy struct {
	Bin      string
	Ctx      []cdt.CtxStep
	Selector cdt.Selector
	Return   cdt.ReturnType
	Inverted bool
}

func (o Get) BinName() string          { return o.Bin }
func (o Put) BinName() string          { return o.Bin }
func (o ListAppend) BinName() string   { return o.Bin }
func (o ListInsert) BinName() string   { return o.Bin }
func (o ListSize) BinName() string     { return o.Bin }
func (o ListClear) BinName() string    { return o.Bin }
func (o ListGetBy) BinName() string    { return o.Bin }
func (o ListRemoveBy) BinName() string { return o.Bin }
func (o ListSetOrder) BinName() string { return o.Bin }
func (o ListSort) BinName() string     { return o.Bin }
func (o MapPut) BinName() string       { return o.Bin }
func (o MapSize) BinName() string      { return o.Bin }
func (o MapClear) BinName() string     { return o.Bin }
func (o MapGetBy) BinName() string     { return o.Bin }
func (o MapRemoveBy) BinName() string  { return o.Bin }

func (Get) IsWrite() bool          { return false }
func (Put) IsWrite() bool          { return true }
func (ListAppend) IsWrite() bool   { return true }
func (ListInsert) IsWrite() bool   { return true }
func (ListSize) IsWrite() bool     { return false }
func (ListClear) IsWrite() bool    { return true }
func (ListGetBy) IsWrite() bool    { return false }
func (ListRemoveBy) IsWrite() bool { return true }
func (ListSetOrder) IsWrite() bool { return true }
func (ListSort) IsWrite() bool     { return true }
func (MapPut) IsWrite() bool       { return true }
func (MapSize) IsWrite() bool      { return false }
func (MapClear) IsWrite() bool     { return true }
func (MapGetBy) IsWrite() bool     { return false }
func (MapRemoveBy) IsWrite() bool  { return true }

func (o Get) String() string { return fmt.Sprintf("get(%s)", o.Bin) }
func (o Put) String() string { return fmt.Sprintf("put(%s, %v)", o.Bin, o.Value) }
func (o ListAppend) String() string {
	return fmt.Sprintf("list_append(%s%s, %v)", o.Bin, ctxSuffix(o.Ctx), o.Values)
}
func (o ListInsert) String() string {
	return fmt.Sprintf("list_insert(%s%s, %d, %v)", o.Bin, ctxSuffix(o.Ctx), o.Index, o.Values)
}
func (o ListSize) String() string  { return fmt.Sprintf("list_size(%s%s)", o.Bin, ctxSuffix(o.Ctx)) }
func (o ListClear) String() string { return fmt.Sprintf("list_clear(%s%s)", o.Bin, ctxSuffix(o.Ctx)) }
func (o ListGetBy) String() string {
	return selectorString("list_get_by", o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted)
}
func (o ListRemoveBy) String() string {
	return selectorString("list_remove_by", o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted)
}
func (o ListSetOrder) String() string {
	return fmt.Sprintf("list_set_order(%s%s, %s)", o.Bin, ctxSuffix(o.Ctx), o.Order)
}
func (o ListSort) String() string {
	return fmt.Sprintf("list_sort(%s%s, %d)", o.Bin, ctxSuffix(o.Ctx), o.Flags)
}
func (o MapPut) String() string {
	return fmt.Sprintf("map_put(%s%s, %v, %v)", o.Bin, ctxSuffix(o.Ctx), o.Key, o.Value)
}
func (o MapSize) String() string  { return fmt.Sprintf("map_size(%s%s)", o.Bin, ctxSuffix(o.Ctx)) }
func (o MapClear) String() string { return fmt.Sprintf("map_clear(%s%s)", o.Bin, ctxSuffix(o.Ctx)) }
func (o MapGetBy) String() string {
	return selectorString("map_get_by", o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted)
}
func (o MapRemoveBy) String() string {
	return selectorString("map_remove_by", o.Bin, o.Ctx, o.Selector, o.Return, o.Inverted)
}

func ctxSuffix(ctx []cdt.CtxStep) string {
	if len(ctx) == 0 {
		return ""
	}
	return " " + cdt.PathString(ctx)
}

func selectorString(name, bin string, ctx []cdt.CtxStep, sel cdt.Selector, rt cdt.ReturnType, inverted bool) string {
	s := fmt.Sprintf("%s(%s%s, %v, %s", name, bin, ctxSuffix(ctx), sel, rt)
	if inverted {
		s += ", inverted"
	}
	return s + ")"
}

// HasWrite reports whether any of ops may change the record.
func HasWrite(ops []Operation) bool {
	for _, op := range ops {
		if op.IsWrite() {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Operation Semantics
// --------------------------------------------------------------------------

func (o Get) apply(rec *Record) (any, error) {
	return rec.Bins[o.Bin], nil
}

func (o Put) apply(rec *Record) (any, error) {
	v, err := cdt.Normalize(o.Value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		delete(rec.Bins, o.Bin)
	} else {
		rec.Bins[o.Bin] = v
	}
	return nil, nil
}

func (o ListAppend) apply(rec *Record) (any, error) {
	var size int64
	err := rec.modify(o.Bin, o.Ctx, true, func(cur any) (any, error) {
		if err := requireList(cur, true); err != nil {
			return nil, err
		}
		out, n, err := cdt.Append(cur, o.Values...)
		size = n
		return out, err
	})
	return size, err
}

func (o ListInsert) apply(rec *Record) (any, error) {
	var size int64
	err := rec.modify(o.Bin, o.Ctx, true, func(cur any) (any, error) {
		if err := requireList(cur, true); err != nil {
			return nil, err
		}
		out, n, err := cdt.Insert(cur, o.Index, o.Values...)
		size = n
		return out, err
	})
	return size, err
}

func (o ListSize) apply(rec *Record) (any, error) {
	cur, err := rec.lookup(o.Bin, o.Ctx)
	if err != nil {
		return nil, err
	}
	if err := requireList(cur, false); err != nil {
		return nil, err
	}
	return cdt.Size(cur)
}

func (o ListClear) apply(rec *Record) (any, error) {
	return nil, rec.modify(o.Bin, o.Ctx, false, func(cur any) (any, error) {
		if err := requireList(cur, false); err != nil {
			return nil, err
		}
		return cdt.Clear(cur)
	})
}

func (o ListGetBy) apply(rec *Record) (any, error) {
	cur, err := rec.lookup(o.Bin, o.Ctx)
	if err != nil {
		return nil, err
	}
	if err := requireList(cur, false); err != nil {
		return nil, err
	}
	return cdt.GetBy(cur, o.Selector, o.Return, o.Inverted)
}

func (o ListRemoveBy) apply(rec *Record) (any, error) {
	var removed any
	err := rec.modify(o.Bin, o.Ctx, false, func(cur any) (any, error) {
		if err := requireList(cur, false); err != nil {
			return nil, err
		}
		var out any
		var err error
		removed, out, err = cdt.RemoveBy(cur, o.Selector, o.Return, o.Inverted)
		return out, err
	})
	return removed, err
}

func (o ListSetOrder) apply(rec *Record) (any, error) {
	return nil, rec.modify(o.Bin, o.Ctx, true, func(cur any) (any, error) {
		if cur == nil {
			cur = []any{}
		}
		return cdt.SetOrder(cur, o.Order)
	})
}

func (o ListSort) apply(rec *Record) (any, error) {
	return nil, rec.modify(o.Bin, o.Ctx, false, func(cur any) (any, error) {
		return cdt.Sort(cur, o.Flags)
	})
}

func (o MapPut) apply(rec *Record) (any, error) {
	var size int64
	err := rec.modify(o.Bin, o.Ctx, true, func(cur any) (any, error) {
		out, n, err := cdt.Put(cur, o.Key, o.Value)
		size = n
		return out, err
	})
	return size, err
}

func (o MapSize) apply(rec *Record) (any, error) {
	cur, err := rec.lookup(o.Bin, o.Ctx)
	if err != nil {
		return nil, err
	}
	if err := requireMap(cur); err != nil {
		return nil, err
	}
	return cdt.Size(cur)
}

func (o MapClear) apply(rec *Record) (any, error) {
	return nil, rec.modify(o.Bin, o.Ctx, false, func(cur any) (any, error) {
		if err := requireMap(cur); err != nil {
			return nil, err
		}
		return cdt.Clear(cur)
	})
}

func (o MapGetBy) apply(rec *Record) (any, error) {
	cur, err := rec.lookup(o.Bin, o.Ctx)
	if err != nil {
		return nil, err
	}
	if err := requireMap(cur); err != nil {
		return nil, err
	}
	return cdt.GetBy(cur, o.Selector, o.Return, o.Inverted)
}

func (o MapRemoveBy) apply(rec *Record) (any, error) {
	var removed any
	err := rec.modify(o.Bin, o.Ctx, false, func(cur any) (any, error) {
		if err := requireMap(cur); err != nil {
			return nil, err
		}
		var out any
		var err error
		removed, out, err = cdt.RemoveBy(cur, o.Selector, o.Return, o.Inverted)
		return out, err
	})
	return removed, err
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// lookup resolves ctx inside bin.
func (r *Record) lookup(bin string, ctx []cdt.CtxStep) (any, error) {
	v, err := r.bin(bin)
	if err != nil {
		return nil, err
	}
	return cdt.Lookup(v, ctx)
}

// modify replaces the collection at ctx inside bin with the result of fn.
// With create set, a missing bin is passed to fn as nil (only without ctx).
func (r *Record) modify(bin string, ctx []cdt.CtxStep, create bool, fn func(cur any) (any, error)) error {
	v, ok := r.Bins[bin]
	if !ok && (!create || len(ctx) > 0) {
		return fmt.Errorf("%w: %q", ErrBinNotFound, bin)
	}
	out, err := cdt.Modify(v, ctx, fn)
	if err != nil {
		return err
	}
	r.Bins[bin] = out
	return nil
}

func requireList(v any, allowNil bool) error {
	if cdt.IsList(v) || (allowNil && v == nil) {
		return nil
	}
	return fmt.Errorf("%w: list operation on %s", cdt.ErrTypeMismatch, kindOf(v))
}

func requireMap(v any) error {
	if _, ok := v.(cdt.Map); ok {
		return nil
	}
	return fmt.Errorf("%w: map operation on %s", cdt.ErrTypeMismatch, kindOf(v))
}

func kindOf(v any) string {
	return cdt.KindOf(v).String()
}
