package server

import (
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
)

// IRPCServerAdapter turns a request message into calls on a store.
type IRPCServerAdapter interface {
	// Handle executes req against s. Failures are reported in the returned
	// message, never as a nil response.
	Handle(req *common.Message, s store.IStore) (resp *common.Message)
}
