package server

import (
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
)

// NewIStoreServerAdapter returns the adapter for store.IStore shards.
func NewIStoreServerAdapter() IRPCServerAdapter {
	return iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTPut:
		bins, err := record.DecodeBins(req.Value)
		if err != nil {
			return invalid(req, err)
		}
		return common.NewResponse(common.MsgTPut, nil, false, s.Put(req.Key, bins, req.TTL))
	case common.MsgTGet:
		return common.NewGetResponse(s.Get(req.Key))
	case common.MsgTExists:
		ok, err := s.Exists(req.Key)
		return common.NewResponse(common.MsgTExists, nil, ok, err)
	case common.MsgTRemove:
		return common.NewResponse(common.MsgTRemove, nil, false, s.Remove(req.Key))
	case common.MsgTOperate:
		ops, err := record.DecodeOps(req.Value)
		if err != nil {
			return invalid(req, err)
		}
		return common.NewOperateResponse(s.Operate(req.Key, ops))
	case common.MsgTBatch:
		records, err := store.DecodeBatch(req.Value)
		if err != nil {
			return invalid(req, err)
		}
		return common.NewBatchResponse(records, s.BatchOperate(records))
	case common.MsgTInfo:
		return common.NewInfoResponse(s.GetDBInfo())
	default:
		return common.NewErrorResponse(store.RetCUnsupportedOperation,
			fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}

func invalid(req *common.Message, err error) *common.Message {
	return common.NewErrorResponse(store.RetCInvalidOperation,
		fmt.Sprintf("malformed %s request: %v", req.MsgType, err))
}
