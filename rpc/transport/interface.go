package transport

import (
	"errors"

	"github.com/ValentinKolb/dCDT/rpc/common"
)

// ErrTimeout is returned (wrapped) by client transports when no response
// arrived within the configured timeout.
var ErrTimeout = errors.New("request timed out")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc answers one serialized request addressed to shardId.
// Transports may call it concurrently.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport receives requests and passes them to the registered handler.
type IRPCServerTransport interface {
	// RegisterHandler sets the handler. It must be called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves requests until Close is called. It returns nil after Close.
	Listen(config common.ServerConfig) error
	// Close stops accepting connections.
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport sends serialized requests to a server.
type IRPCClientTransport interface {
	// Connect opens the connections described by config.
	Connect(config common.ClientConfig) error
	// Send delivers req to shardId and waits for the response.
	// An error means the request may or may not have reached the server.
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close closes all connections.
	Close() error
}
