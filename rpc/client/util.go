package client

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// rpcClientAdapter holds what every request needs: the target shard, the
// transport, the serializer and the error rate limiter.
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	limiter    *errorRateLimiter
}

// invoke sends req and returns the response. Errors are always *store.Error:
// the server's error is rebuilt from the response code, transport failures
// become RetCClientError or RetCTimeout and count against the error rate.
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	if !a.limiter.admit() {
		return nil, store.NewError(store.RetCMaxErrorRate,
			fmt.Sprintf("more than %d errors in the current tend interval", a.config.MaxErrorRate))
	}

	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("failed to serialize request: %v", err))
	}

	respBytes, err := a.transport.Send(a.shardId, reqBytes)
	if err != nil {
		a.limiter.failure()
		if errors.Is(err, transport.ErrTimeout) {
			return nil, store.NewError(store.RetCTimeout, err.Error())
		}
		return nil, store.NewError(store.RetCClientError, err.Error())
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		a.limiter.failure()
		return nil, store.NewError(store.RetCClientError, fmt.Sprintf("failed to deserialize response: %v", err))
	}
	if err := resp.AsError(); err != nil {
		return nil, err
	}
	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInternalError,
			fmt.Sprintf("unexpected response type %s, expected %s", resp.MsgType, req.MsgType))
	}
	return resp, nil
}
