package tcp

import (
	"net"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/ValentinKolb/dCDT/rpc/transport/base"
)

type connector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docs see base.IClientConnector and base.IServerConnector)
// --------------------------------------------------------------------------

func (connector) GetName() string {
	return "tcp"
}

func (connector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (connector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Transport.Endpoint)
}

// --------------------------------------------------------------------------
// Factory Methods
// --------------------------------------------------------------------------

// NewTCPClientTransport returns a client transport dialing host:port endpoints.
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(connector{})
}

// NewTCPServerTransport returns a server transport listening on a host:port endpoint.
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(connector{})
}
