package internal

import (
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // Retrieve a record.
	QueryTExists                     // Check if a record exists.
	QueryTRead                       // Apply read-only operations to a record.
	QueryTBatchRead                  // Execute a batch that only reads.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTExists:
		return "Exists"
	case QueryTRead:
		return "Read"
	case QueryTBatchRead:
		return "BatchRead"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead.
// Queries never leave the node, so they are not serialized.
type Query struct {
	Type  QueryType
	Key   string             // empty for GetDBInfo and BatchRead
	Ops   []record.Operation // QueryTRead
	Batch []*store.BatchRecord
}

// ReadResult is the result of a QueryTRead.
type ReadResult struct {
	Results []any
}
