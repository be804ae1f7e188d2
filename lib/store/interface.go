package store

import (
	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// TTL values with a special meaning. Positive values are the lifetime of the
// record in write-index ticks of the underlying store.
const (
	TTLDefault     int64 = 0  // the store default (records never expire)
	TTLNeverExpire int64 = -1 // the record never expires
	TTLDontUpdate  int64 = -2 // keep the current lifetime of the record
)

// IStore is the interface of a record store: the database collaborator the
// CDT operations run against. Every method returns a *Error (nil on success)
// as error so callers can inspect the RetCode.
type IStore interface {
	// Put writes bins into the record, creating it if needed. Existing bins
	// that are not named are kept; a bin with a nil value is removed. A record
	// left without bins is deleted.
	Put(key string, bins record.Bins, ttl int64) (err error)

	// Get returns the record. It fails with RetCRecordNotFound if there is none.
	Get(key string) (rec *record.Record, err error)

	// Exists reports whether the record exists.
	Exists(key string) (ok bool, err error)

	// Remove deletes the record. It fails with RetCRecordNotFound if there is none.
	Remove(key string) (err error)

	// Operate applies ops to the record atomically and returns the
	// per-operation results in order. If any operation fails the record is
	// left unchanged. The lifetime of the record is kept.
	Operate(key string, ops []record.Operation) (results []any, err error)

	// BatchOperate executes each batch record independently and stores the
	// outcome in the record itself. A failing record never affects its
	// siblings; err is only set if the batch as a whole could not be run.
	BatchOperate(records []*BatchRecord) (err error)

	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}
