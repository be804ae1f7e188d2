package record

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrBinNotFound    = errors.New("bin not found")
	ErrUDFNotFound    = errors.New("udf not found")
)

// MaxBinNameLen is the longest accepted bin name in bytes.
const MaxBinNameLen = 15

// --------------------------------------------------------------------------
// Record
// --------------------------------------------------------------------------

// Bins maps bin names to values of the cdt value model.
type Bins map[string]any

// Record is a uniquely keyed set of bins.
// Generation is incremented by every write and starts at 1 for a new record.
type Record struct {
	Key        string
	Bins       Bins
	Generation uint32
}

// New creates a record with normalized bins and generation 0.
func New(key string, bins Bins) (*Record, error) {
	normalized, err := NormalizeBins(bins)
	if err != nil {
		return nil, err
	}
	return &Record{Key: key, Bins: normalized}, nil
}

// NormalizeBins validates the bin names and normalizes the values.
// Bins with a nil value are dropped.
func NormalizeBins(bins Bins) (Bins, error) {
	out := make(Bins, len(bins))
	for name, value := range bins {
		if err := ValidateBinName(name); err != nil {
			return nil, err
		}
		n, err := cdt.Normalize(value)
		if err != nil {
			return nil, fmt.Errorf("bin %q: %w", name, err)
		}
		if n != nil {
			out[name] = n
		}
	}
	return out, nil
}

// ValidateBinName checks that name is not empty and at most MaxBinNameLen bytes long.
func ValidateBinName(name string) error {
	if name == "" || len(name) > MaxBinNameLen {
		return fmt.Errorf("%w: bin name %q must have 1 to %d bytes", cdt.ErrInvalidParam, name, MaxBinNameLen)
	}
	return nil
}

// Clone returns a copy of the record. Bin values are shared; they are never
// modified in place.
func (r *Record) Clone() *Record {
	bins := make(Bins, len(r.Bins))
	for name, value := range r.Bins {
		bins[name] = value
	}
	return &Record{Key: r.Key, Bins: bins, Generation: r.Generation}
}

// BinNames returns the bin names in sorted order.
func (r *Record) BinNames() []string {
	names := make([]string, 0, len(r.Bins))
	for name := range r.Bins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Record) String() string {
	return fmt.Sprintf("Record{Key: %s, Generation: %d, Bins: %v}", r.Key, r.Generation, r.Bins)
}

// bin returns the value of bin name or ErrBinNotFound.
func (r *Record) bin(name string) (any, error) {
	v, ok := r.Bins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBinNotFound, name)
	}
	return v, nil
}
