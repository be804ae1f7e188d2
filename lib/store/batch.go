package store

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/record"
)

// --------------------------------------------------------------------------
// Batch Records
// --------------------------------------------------------------------------

// BatchKind tags what a BatchRecord does.
type BatchKind uint8

const (
	BatchRead   BatchKind = iota // read the record, optionally through read-only operations
	BatchWrite                   // apply operations (reads and writes) atomically
	BatchApply                   // run a registered UDF against the record
	BatchRemove                  // delete the record
)

func (k BatchKind) String() string {
	switch k {
	case BatchRead:
		return "read"
	case BatchWrite:
		return "write"
	case BatchApply:
		return "apply"
	case BatchRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// BatchRecord pairs a key with the work to do for it. The fields in the
// second block are populated by IStore.BatchOperate.
type BatchRecord struct {
	Kind BatchKind
	Key  string

	// Ops are run for BatchRead (read-only, nil = fetch all bins) and BatchWrite.
	Ops []record.Operation
	// TTL is applied by BatchWrite (see the TTL constants).
	TTL int64
	// Module, Function and Args name the UDF run by BatchApply.
	Module   string
	Function string
	Args     []any

	// ResultCode is RetCSuccess or the code of Err.
	ResultCode RetCode
	Err        *Error
	// Record is the record after a successful read, write or apply
	// (nil if it does not exist afterwards).
	Record *record.Record
	// Results holds the per-operation results, or the UDF result for BatchApply.
	Results []any
	// InDoubt is set if a write may have been applied although it reported an error.
	InDoubt bool
}

// NewBatchRead creates a batch read. Without ops the whole record is fetched.
func NewBatchRead(key string, ops ...record.Operation) *BatchRecord {
	return &BatchRecord{Kind: BatchRead, Key: key, Ops: ops}
}

// NewBatchWrite creates a batch write that keeps the record's lifetime.
func NewBatchWrite(key string, ops ...record.Operation) *BatchRecord {
	return &BatchRecord{Kind: BatchWrite, Key: key, Ops: ops, TTL: TTLDontUpdate}
}

// NewBatchApply creates a batch UDF call.
func NewBatchApply(key, module, function string, args ...any) *BatchRecord {
	return &BatchRecord{Kind: BatchApply, Key: key, Module: module, Function: function, Args: args}
}

// NewBatchRemove creates a batch delete.
func NewBatchRemove(key string) *BatchRecord {
	return &BatchRecord{Kind: BatchRemove, Key: key}
}

// SetError stores err (nil = success) in the record.
func (b *BatchRecord) SetError(err error) {
	b.Err = FromError(err)
	b.ResultCode = RetCSuccess
	if b.Err != nil {
		b.ResultCode = b.Err.Code
	}
}

// Reset clears the populated fields so the record can be executed again.
func (b *BatchRecord) Reset() {
	b.ResultCode = RetCSuccess
	b.Err = nil
	b.Record = nil
	b.Results = nil
	b.InDoubt = false
}

// Validate checks that the kind-specific fields are consistent.
func (b *BatchRecord) Validate() error {
	switch b.Kind {
	case BatchRead:
		if record.HasWrite(b.Ops) {
			return NewError(RetCInvalidOperation, "batch read with write operations")
		}
	case BatchWrite:
		if len(b.Ops) == 0 {
			return NewError(RetCInvalidOperation, "batch write without operations")
		}
	case BatchApply:
		if b.Module == "" || b.Function == "" {
			return NewError(RetCInvalidOperation, "batch apply without module or function")
		}
	case BatchRemove:
	default:
		return NewError(RetCInvalidOperation, fmt.Sprintf("unknown batch kind %d", b.Kind))
	}
	return nil
}

func (b *BatchRecord) String() string {
	return fmt.Sprintf("BatchRecord{Kind: %s, Key: %s, ResultCode: %s}", b.Kind, b.Key, b.ResultCode)
}
