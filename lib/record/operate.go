package record

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// Operate applies ops in order to rec and returns the per-operation results
// in the same order.
//
// rec is the current state of the record, nil if it does not exist. The
// operations work on a copy: on success the copy is returned as out (nil if
// the record ends up without bins), on failure rec is untouched and out is nil.
// If no operation writes, out is rec itself.
//
// Read-only operations on a missing record fail with ErrRecordNotFound.
// A record that is written gets its generation incremented.
func Operate(key string, rec *Record, ops []Operation) (out *Record, results []any, err error) {
	if len(ops) == 0 {
		return nil, nil, fmt.Errorf("%w: no operations", cdt.ErrInvalidParam)
	}
	for i, op := range ops {
		if op == nil {
			return nil, nil, fmt.Errorf("%w: operation %d is nil", cdt.ErrInvalidParam, i)
		}
		if err := ValidateBinName(op.BinName()); err != nil {
			return nil, nil, err
		}
	}

	write := HasWrite(ops)
	if rec == nil && !write {
		return nil, nil, fmt.Errorf("%w: %q", ErrRecordNotFound, key)
	}

	work := rec
	switch {
	case rec == nil:
		work = &Record{Key: key, Bins: Bins{}}
	case write:
		work = rec.Clone()
	}

	results = make([]any, len(ops))
	for i, op := range ops {
		if results[i], err = op.apply(work); err != nil {
			return nil, nil, fmt.Errorf("operation %d %s: %w", i, op, err)
		}
	}

	if !write {
		return rec, results, nil
	}
	if len(work.Bins) == 0 {
		return nil, results, nil
	}
	work.Generation++
	return work, results, nil
}
