package record

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// User Defined Functions
// --------------------------------------------------------------------------

// UDF is a function applied to a single record by a batch apply.
// It receives a private copy of the record (with empty bins if the record
// does not exist) and may change its bins freely. The returned value is
// reported to the caller.
type UDF func(rec *Record, args []any) (any, error)

var udfs = xsync.NewMapOf[string, UDF]()

func udfName(module, function string) string {
	return module + "." + function
}

// RegisterUDF makes fn available as module.function, replacing any earlier
// registration under that name.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func RegisterUDF(module, function string, fn UDF) {
	udfs.Store(udfName(module, function), fn)
}

// LookupUDF returns the function registered as module.function.
func LookupUDF(module, function string) (UDF, bool) {
	return udfs.Load(udfName(module, function))
}

// Apply runs the registered UDF module.function against rec.
// args are normalized first, so the function sees the same value model
// whether it runs locally or behind the wire codec. As with Operate, rec is
// never modified and out is nil when the record has no bins left afterwards.
func Apply(key string, rec *Record, module, function string, args []any) (out *Record, result any, err error) {
	fn, ok := LookupUDF(module, function)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUDFNotFound, udfName(module, function))
	}

	normalized, err := normalizeAll(args)
	if err != nil {
		return nil, nil, fmt.Errorf("udf %s args: %w", udfName(module, function), err)
	}

	work := &Record{Key: key, Bins: Bins{}}
	if rec != nil {
		work = rec.Clone()
	}
	if result, err = fn(work, normalized); err != nil {
		return nil, nil, fmt.Errorf("udf %s: %w", udfName(module, function), err)
	}
	if result, err = cdt.Normalize(result); err != nil {
		return nil, nil, fmt.Errorf("udf %s result: %w", udfName(module, function), err)
	}
	if work.Bins, err = NormalizeBins(work.Bins); err != nil {
		return nil, nil, fmt.Errorf("udf %s: %w", udfName(module, function), err)
	}
	work.Key = key
	if len(work.Bins) == 0 {
		return nil, result, nil
	}
	work.Generation++
	return work, result, nil
}
