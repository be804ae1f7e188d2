package client

import (
	"encoding/json"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/transport"
)

// RPCStore is a store.IStore that forwards every call to one shard of a server.
type RPCStore struct {
	rpcClientAdapter
}

// NewRPCStore connects transport and returns a store for shardId.
//
// Usage:
//
//	s, err := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer s.Close()
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}
	return &RPCStore{rpcClientAdapter{
		shardId:    shardId,
		config:     config,
		transport:  transport,
		serializer: serializer,
		limiter:    newErrorRateLimiter(config.MaxErrorRate, time.Duration(config.TendIntervalMs)*time.Millisecond),
	}}, nil
}

// Close stops the tend loop and closes the transport.
func (s *RPCStore) Close() error {
	s.limiter.stop()
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store.IStore)
// --------------------------------------------------------------------------

func (s *RPCStore) Put(key string, bins record.Bins, ttl int64) error {
	req, err := common.NewPutRequest(key, bins, ttl)
	if err != nil {
		return store.FromError(err)
	}
	_, err = s.invoke(req)
	return err
}

func (s *RPCStore) Get(key string) (*record.Record, error) {
	resp, err := s.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, err
	}
	rec, err := record.Decode(key, resp.Value)
	if err != nil {
		return nil, store.NewError(store.RetCClientError, err.Error())
	}
	return rec, nil
}

func (s *RPCStore) Exists(key string) (bool, error) {
	resp, err := s.invoke(common.NewExistsRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (s *RPCStore) Remove(key string) error {
	_, err := s.invoke(common.NewRemoveRequest(key))
	return err
}

func (s *RPCStore) Operate(key string, ops []record.Operation) ([]any, error) {
	req, err := common.NewOperateRequest(key, ops)
	if err != nil {
		return nil, store.FromError(err)
	}
	resp, err := s.invoke(req)
	if err != nil {
		return nil, err
	}
	results, err := record.DecodeValues(resp.Value)
	if err != nil {
		return nil, store.NewError(store.RetCClientError, err.Error())
	}
	return results, nil
}

func (s *RPCStore) BatchOperate(records []*store.BatchRecord) error {
	req, err := common.NewBatchRequest(records)
	if err != nil {
		return store.FromError(err)
	}
	resp, err := s.invoke(req)
	if err != nil {
		if code := store.CodeOf(err); code == store.RetCClientError || code == store.RetCTimeout {
			// the server may have run the batch
			for _, b := range records {
				b.InDoubt = b.Kind != store.BatchRead
			}
		}
		return err
	}
	if err := store.DecodeBatchResults(records, resp.Value); err != nil {
		return store.NewError(store.RetCClientError, err.Error())
	}
	return nil
}

func (s *RPCStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := s.invoke(common.NewInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Value, &info); err != nil {
		return db.DatabaseInfo{}, store.NewError(store.RetCClientError, err.Error())
	}
	return info, nil
}
