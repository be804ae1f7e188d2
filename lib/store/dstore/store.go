package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// storeImpl is the raft backed implementation of store.IStore.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a new distributed store instance which uses raft consensus to ensure strict linearizability
// across multiple nodes.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// raftError converts an error returned by dragonboat.
func raftError(err error) error {
	var se *store.Error
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, dragonboat.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return store.NewError(store.RetCTimeout, err.Error())
	default:
		return store.NewError(store.RetCInternalError, err.Error())
	}
}

// write proposes cmd via SyncPropose and returns the result data of the
// state machine. ErrSystemBusy is retried.
func (s *storeImpl) write(cmd internal.Command) ([]byte, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return nil, raftError(err)
		}
		if res.Value != uint64(store.RetCSuccess) {
			return nil, store.NewError(store.RetCode(res.Value), string(res.Data))
		}
		return res.Data, nil
	}
	return nil, store.NewError(store.RetCTimeout, "system busy")
}

// read queries the state machine and casts the response into R.
//
// This function uses SyncRead by default. If linearizability is not required,
// stale can be set to use the faster StaleRead.
func read[R any](s *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {
		var (
			res interface{}
			err error
		)
		if stale {
			res, err = s.nh.StaleRead(s.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			res, err = s.nh.SyncRead(ctx, s.shardID, q)
			cancel()
		}

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return zero, raftError(err)
		}

		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCTimeout, "system busy")
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key string, bins record.Bins, ttl int64) error {
	cmd, err := internal.NewPutCommand(key, bins, ttl)
	if err != nil {
		return store.FromError(err)
	}
	_, err = s.write(cmd)
	return err
}

func (s *storeImpl) Get(key string) (*record.Record, error) {
	return read[*record.Record](s, internal.Query{Type: internal.QueryTGet, Key: key}, false)
}

func (s *storeImpl) Exists(key string) (bool, error) {
	return read[bool](s, internal.Query{Type: internal.QueryTExists, Key: key}, false)
}

func (s *storeImpl) Remove(key string) error {
	_, err := s.write(internal.Command{Type: internal.CommandTRemove, Key: key})
	return err
}

func (s *storeImpl) Operate(key string, ops []record.Operation) ([]any, error) {
	// reads don't need a log entry
	if len(ops) > 0 && !record.HasWrite(ops) {
		res, err := read[internal.ReadResult](s, internal.Query{Type: internal.QueryTRead, Key: key, Ops: ops}, false)
		return res.Results, err
	}

	cmd, err := internal.NewOperateCommand(key, ops)
	if err != nil {
		return nil, store.FromError(err)
	}
	data, err := s.write(cmd)
	if err != nil {
		return nil, err
	}
	results, err := record.DecodeValues(data)
	if err != nil {
		return nil, store.FromError(err)
	}
	return results, nil
}

func (s *storeImpl) BatchOperate(records []*store.BatchRecord) error {
	readOnly := true
	for _, b := range records {
		if b.Kind != store.BatchRead {
			readOnly = false
			break
		}
	}

	if readOnly {
		// the state machine fills the records in place
		_, err := read[bool](s, internal.Query{Type: internal.QueryTBatchRead, Batch: records}, false)
		return err
	}

	cmd, err := internal.NewBatchCommand(records)
	if err != nil {
		return store.FromError(err)
	}
	data, err := s.write(cmd)
	if err != nil {
		// the batch may or may not have been committed
		for _, b := range records {
			b.InDoubt = b.Kind != store.BatchRead
		}
		return err
	}
	if err := store.DecodeBatchResults(records, data); err != nil {
		return store.FromError(err)
	}
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return read[db.DatabaseInfo](
		s,
		internal.Query{Type: internal.QueryTGetDBInfo},
		true, // Note: allow for stale reads
	)
}
