package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/ValentinKolb/dCDT/rpc/transport/base"
)

type connector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docs see base.IClientConnector and base.IServerConnector)
// --------------------------------------------------------------------------

func (connector) GetName() string {
	return "unix"
}

func (connector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

// Listen removes a stale socket file before listening on it.
func (connector) Listen(config common.ServerConfig) (net.Listener, error) {
	path := config.Transport.Endpoint
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}
	return net.Listen("unix", path)
}

// --------------------------------------------------------------------------
// Factory Methods
// --------------------------------------------------------------------------

// NewUnixClientTransport returns a client transport dialing socket paths.
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(connector{})
}

// NewUnixServerTransport returns a server transport listening on a socket path.
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(connector{})
}
