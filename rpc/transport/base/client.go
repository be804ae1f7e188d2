package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// errConnClosed is delivered to pending requests of a connection that failed.
var errConnClosed = errors.New("connection closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector dials a single connection for a specific network.
type IClientConnector interface {
	// Connect dials endpoint.
	Connect(endpoint string) (net.Conn, error)
	// GetName returns the network name, e.g. "tcp".
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

type responseResult struct {
	data []byte
	err  error
}

// clientConnection is one socket with a reader goroutine that routes
// responses to the waiting requests by request id.
type clientConnection struct {
	endpoint string
	parent   *clientTransport

	mu      sync.Mutex // guards conn and writes to it
	conn    net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
	stopCh  chan struct{}
}

// clientTransport multiplexes requests over a pool of connections.
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	timeout       time.Duration
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64
	nextRequestID atomic.Uint64
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix)
// -----------------------------------------------------------

// NewBaseClientTransport returns a framed client transport dialing through connector.
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docs see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	t.closeConnections()

	t.config = config
	t.timeout = time.Duration(config.TimeoutSecond) * time.Second
	perEndpoint := max(1, config.Transport.ConnectionsPerEndpoint)

	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*perEndpoint)
	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < perEndpoint; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				parent:   t,
				pending:  xsync.NewMapOf[uint64, chan responseResult](),
				stopCh:   make(chan struct{}),
			}
			conn, err := c.dial()
			if err != nil {
				Logger.Warningf("failed to connect to %s (connection %d/%d): %v", endpoint, i+1, perEndpoint, err)
				continue
			}
			c.conn = conn
			connections = append(connections, c)
			go c.readResponses(conn)
		}
	}
	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("connected %d of %d %s connections to %d endpoints",
		len(connections), len(config.Transport.Endpoints)*perEndpoint, t.connector.GetName(), len(config.Transport.Endpoints))
	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	attempts := max(1, t.config.Transport.RetryCount)
	backoff := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < attempts; i++ {
		c := t.nextConnection()
		if c == nil {
			return nil, fmt.Errorf("no active connections available")
		}
		data, err := c.send(shardId, t.nextRequestID.Add(1), req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		Logger.Debugf("request attempt %d/%d failed: %v", i+1, attempts, err)

		if i+1 < attempts {
			// exponential backoff with +-10% jitter
			time.Sleep(time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64())))
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextConnection selects a connection round robin.
func (t *clientTransport) nextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	}
	return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
}

func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}
}

func (c *clientConnection) dial() (net.Conn, error) {
	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	tc := c.parent.config.Transport
	if err := ConfigureSocket(conn, tc.SocketConf, tc.TCPConf); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to configure connection to %s: %w", c.endpoint, err)
	}
	return conn, nil
}

// send writes one request and waits for its response.
func (c *clientConnection) send(shardID, requestID uint64, req []byte) ([]byte, error) {
	respCh := make(chan responseResult, 1)
	c.pending.Store(requestID, respCh)
	defer c.pending.Delete(requestID)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		// the last reconnect failed, try again
		var err error
		if conn, err = c.dial(); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", errConnClosed, err)
		}
		c.conn = conn
		go c.readResponses(conn)
	}
	if c.parent.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.parent.timeout))
	}
	err := writeFrame(conn, shardID, requestID, req)
	c.mu.Unlock()
	if err != nil {
		c.fail(conn, err)
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if c.parent.timeout > 0 {
		timer := time.NewTimer(c.parent.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case res := <-respCh:
		return res.data, res.err
	case <-timeoutCh:
		return nil, fmt.Errorf("%w after %s", transport.ErrTimeout, c.parent.timeout)
	}
}

// readResponses routes frames read from conn until conn fails.
func (c *clientConnection) readResponses(conn net.Conn) {
	for {
		_, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			c.fail(conn, err)
			return
		}
		if respCh, ok := c.pending.Load(requestID); ok {
			respCh <- responseResult{data: data}
		} else {
			Logger.Warningf("received response for unknown request id %d", requestID)
		}
	}
}

// fail closes conn, fails all pending requests and dials a new connection
// unless the transport is shutting down.
func (c *clientConnection) fail(conn net.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// already replaced
		c.mu.Unlock()
		return
	}
	_ = conn.Close()
	c.conn = nil
	c.mu.Unlock()

	c.pending.Range(func(id uint64, ch chan responseResult) bool {
		select {
		case ch <- responseResult{err: fmt.Errorf("%w: %v", errConnClosed, cause)}:
		default:
		}
		return true
	})

	select {
	case <-c.stopCh:
		return
	default:
	}
	Logger.Warningf("connection to %s failed: %v, reconnecting", c.endpoint, cause)

	newConn, err := c.dial()
	if err != nil {
		Logger.Errorf("failed to reconnect to %s: %v", c.endpoint, err)
		return
	}
	c.mu.Lock()
	select {
	case <-c.stopCh:
		c.mu.Unlock()
		_ = newConn.Close()
		return
	default:
	}
	c.conn = newConn
	c.mu.Unlock()
	go c.readResponses(newConn)
}
