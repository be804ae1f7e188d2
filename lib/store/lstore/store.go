package lstore

import (
	"sync/atomic"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/internal/executor"
)

type storeImpl struct {
	exec  *executor.Executor
	index atomic.Uint64
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore(factory store.DBFactory) store.IStore {
	return &storeImpl{
		exec: executor.New(factory()),
	}
}

// incAndGetIndex increments the index and returns the new value.
// It is passed to the executor as a db.IndexFunc, so the index is taken while
// the written key is locked and writes to one key see increasing indexes.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key string, bins record.Bins, ttl int64) error {
	return s.exec.Put(key, bins, ttl, s.incAndGetIndex)
}

func (s *storeImpl) Get(key string) (*record.Record, error) {
	return s.exec.Get(key)
}

func (s *storeImpl) Exists(key string) (bool, error) {
	return s.exec.Exists(key)
}

func (s *storeImpl) Remove(key string) error {
	return s.exec.Remove(key, s.incAndGetIndex)
}

func (s *storeImpl) Operate(key string, ops []record.Operation) ([]any, error) {
	if !record.HasWrite(ops) {
		_, results, err := s.exec.Read(key, ops)
		return results, err
	}
	_, results, err := s.exec.Operate(key, ops, store.TTLDontUpdate, s.incAndGetIndex)
	return results, err
}

func (s *storeImpl) BatchOperate(records []*store.BatchRecord) error {
	s.exec.Batch(records, s.incAndGetIndex)
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.exec.DB().GetInfo(), nil
}
