// Package executor runs record operations against a db.KVDB.
//
// Records are stored encoded (record.Encode) under their key. Every write is
// a single db.Update, so the read of the old record, the operations and the
// write of the new record are atomic per key. The caller provides the write
// index as a db.IndexFunc: an atomic counter in lstore (evaluated while the
// key is locked), the raft log index in dstore.
package executor

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// Executor executes store operations on a KVDB.
//
// Thread-safety: an Executor is as thread-safe as the KVDB it wraps.
type Executor struct {
	db db.KVDB
}

// New creates an executor for database.
func New(database db.KVDB) *Executor {
	return &Executor{db: database}
}

// DB returns the underlying database.
func (x *Executor) DB() db.KVDB {
	return x.db
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mutationFor returns the template mutation for a write with the given ttl.
func mutationFor(ttl int64) (db.Mutation, error) {
	switch {
	case ttl == store.TTLDefault || ttl == store.TTLNeverExpire:
		return db.Mutation{Op: db.MutWrite}, nil
	case ttl == store.TTLDontUpdate:
		return db.Mutation{Op: db.MutWrite, KeepDeadline: true}, nil
	case ttl > 0:
		return db.Mutation{Op: db.MutWrite, DeleteIn: uint64(ttl)}, nil
	default:
		return db.Mutation{}, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("invalid ttl %d", ttl))
	}
}

func (x *Executor) require(feature db.Feature) error {
	if !x.db.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported", feature))
	}
	return nil
}

// update decodes the stored record, passes it to fn (nil if there is none)
// and stores what fn returns. fn returning nil deletes the record, returning
// its argument unchanged leaves the database untouched.
func (x *Executor) update(key string, writeIndex db.IndexFunc, ttl int64, fn func(rec *record.Record) (*record.Record, error)) error {
	if err := x.require(db.FeatureUpdate); err != nil {
		return err
	}
	template, err := mutationFor(ttl)
	if err != nil {
		return err
	}

	var fnErr error
	applied := x.db.Update(key, writeIndex, func(old []byte, loaded bool) db.Mutation {
		var rec *record.Record
		if loaded {
			if rec, fnErr = record.Decode(key, old); fnErr != nil {
				fnErr = store.NewError(store.RetCInternalError, fmt.Sprintf("stored record %q is corrupt: %v", key, fnErr))
				return db.Mutation{Op: db.MutKeep}
			}
		}

		out, err := fn(rec)
		switch {
		case err != nil:
			fnErr = err
			return db.Mutation{Op: db.MutKeep}
		case out == nil && loaded:
			return db.Mutation{Op: db.MutDelete}
		case out == nil || out == rec:
			return db.Mutation{Op: db.MutKeep}
		}

		data, err := record.Encode(out)
		if err != nil {
			fnErr = err
			return db.Mutation{Op: db.MutKeep}
		}
		m := template
		m.Value = data
		return m
	})
	if !applied {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("write to %q is older than the stored record", key))
	}
	if fnErr != nil {
		return store.FromError(fnErr)
	}
	return nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Put merges bins into the record (nil values remove a bin).
func (x *Executor) Put(key string, bins record.Bins, ttl int64, writeIndex db.IndexFunc) error {
	if len(bins) == 0 {
		return store.NewError(store.RetCInvalidOperation, "put without bins")
	}
	normalized := make(record.Bins, len(bins))
	for name, value := range bins {
		if err := record.ValidateBinName(name); err != nil {
			return store.FromError(err)
		}
		n, err := cdt.Normalize(value)
		if err != nil {
			return store.FromError(fmt.Errorf("bin %q: %w", name, err))
		}
		normalized[name] = n
	}

	return x.update(key, writeIndex, ttl, func(rec *record.Record) (*record.Record, error) {
		out := &record.Record{Key: key, Bins: record.Bins{}}
		if rec != nil {
			out = rec.Clone()
		}
		for name, value := range normalized {
			if value == nil {
				delete(out.Bins, name)
			} else {
				out.Bins[name] = value
			}
		}
		if len(out.Bins) == 0 {
			return nil, nil
		}
		out.Generation++
		return out, nil
	})
}

// Remove deletes the record.
func (x *Executor) Remove(key string, writeIndex db.IndexFunc) error {
	return x.update(key, writeIndex, store.TTLDontUpdate, func(rec *record.Record) (*record.Record, error) {
		if rec == nil {
			return nil, fmt.Errorf("%w: %q", record.ErrRecordNotFound, key)
		}
		return nil, nil
	})
}

// Operate applies ops (which may include writes) atomically and returns the
// record afterwards together with the per-operation results.
func (x *Executor) Operate(key string, ops []record.Operation, ttl int64, writeIndex db.IndexFunc) (*record.Record, []any, error) {
	if !record.HasWrite(ops) {
		return x.Read(key, ops)
	}

	var (
		out     *record.Record
		results []any
	)
	err := x.update(key, writeIndex, ttl, func(rec *record.Record) (*record.Record, error) {
		var err error
		out, results, err = record.Operate(key, rec, ops)
		return out, err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, results, nil
}

// Apply runs the UDF module.function against the record.
func (x *Executor) Apply(key, module, function string, args []any, writeIndex db.IndexFunc) (*record.Record, any, error) {
	var (
		out    *record.Record
		result any
	)
	err := x.update(key, writeIndex, store.TTLDontUpdate, func(rec *record.Record) (*record.Record, error) {
		var err error
		if out, result, err = record.Apply(key, rec, module, function, args); err != nil {
			// failures of the function itself are reported as UDF errors
			e := store.FromError(err)
			if e.Code == store.RetCInternalError {
				e = store.NewError(store.RetCUDFError, e.Msg)
			}
			return nil, e
		}
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the stored record or RetCRecordNotFound.
func (x *Executor) Get(key string) (*record.Record, error) {
	if err := x.require(db.FeatureGet); err != nil {
		return nil, err
	}
	data, ok := x.db.Get(key)
	if !ok {
		return nil, store.NewError(store.RetCRecordNotFound, fmt.Sprintf("record %q not found", key))
	}
	rec, err := record.Decode(key, data)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("stored record %q is corrupt: %v", key, err))
	}
	return rec, nil
}

// Exists reports whether the record exists.
func (x *Executor) Exists(key string) (bool, error) {
	if err := x.require(db.FeatureHas); err != nil {
		return false, err
	}
	return x.db.Has(key), nil
}

// Read applies read-only ops to the record.
func (x *Executor) Read(key string, ops []record.Operation) (*record.Record, []any, error) {
	if record.HasWrite(ops) {
		return nil, nil, store.NewError(store.RetCInvalidOperation, "read with write operations")
	}
	rec, err := x.Get(key)
	if err != nil {
		return nil, nil, err
	}
	_, results, err := record.Operate(key, rec, ops)
	if err != nil {
		return nil, nil, store.FromError(err)
	}
	return rec, results, nil
}

// --------------------------------------------------------------------------
// Batch Operations
// --------------------------------------------------------------------------

// Batch executes every record and stores the outcome in it. writeIndex is
// passed to every write of the batch.
func (x *Executor) Batch(records []*store.BatchRecord, writeIndex db.IndexFunc) {
	for _, b := range records {
		b.Reset()
		b.SetError(x.batchOne(b, writeIndex))
	}
}

func (x *Executor) batchOne(b *store.BatchRecord, writeIndex db.IndexFunc) error {
	if err := b.Validate(); err != nil {
		return err
	}

	var err error
	switch b.Kind {
	case store.BatchRead:
		if len(b.Ops) == 0 {
			b.Record, err = x.Get(b.Key)
		} else {
			b.Record, b.Results, err = x.Read(b.Key, b.Ops)
		}
	case store.BatchWrite:
		b.Record, b.Results, err = x.Operate(b.Key, b.Ops, b.TTL, writeIndex)
	case store.BatchApply:
		var result any
		if b.Record, result, err = x.Apply(b.Key, b.Module, b.Function, b.Args, writeIndex); err == nil {
			b.Results = []any{result}
		}
	case store.BatchRemove:
		err = x.Remove(b.Key, writeIndex)
	}
	return err
}
