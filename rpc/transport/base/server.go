package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/transport"
)

// DefaultBufferSize is used when ServerTransportConfig.MaxFrameSizeBytes is not set.
const DefaultBufferSize = 64 * 1024

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector creates the listener for a specific network.
type IServerConnector interface {
	// Listen creates a listener on config.Transport.Endpoint.
	Listen(config common.ServerConfig) (net.Listener, error)
	// GetName returns the network name, e.g. "tcp".
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport accepts connections and answers frames with a bounded
// number of workers per connection.
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	bufferPool sync.Pool
	workers    int
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix)
// -----------------------------------------------------------

// NewBaseServerTransport returns a framed server transport listening through connector.
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docs see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config
	t.workers = max(1, config.Transport.WorkersPerConn)
	bufferSize := config.Transport.MaxFrameSizeBytes
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	t.bufferPool.New = func() any {
		return make([]byte, bufferSize)
	}

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return listener.Close()
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("starting %s server on %s with %d workers per connection",
		t.connector.GetName(), config.Transport.Endpoint, t.workers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("accept error: %v", err)
			continue
		}
		if err := ConfigureSocket(conn, config.Transport.SocketConf, config.Transport.TCPConf); err != nil {
			Logger.Warningf("failed to configure connection from %s: %v", conn.RemoteAddr(), err)
		}
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection reads frames until the connection fails and answers each
// one in its own goroutine, at most t.workers at a time.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	sem := make(chan struct{}, t.workers)
	var wg sync.WaitGroup
	var writeMu sync.Mutex

	respond := func(shardID, requestID uint64, buf, data []byte) {
		defer func() {
			t.bufferPool.Put(buf)
			<-sem
			wg.Done()
		}()

		start := time.Now()
		resp := t.handler(shardID, data)
		Logger.Debugf("request %d for shard %d took %s", requestID, shardID, time.Since(start))

		writeMu.Lock()
		defer writeMu.Unlock()
		if timeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		if err := writeFrame(conn, shardID, requestID, resp); err != nil {
			Logger.Errorf("failed to write response: %v", err)
		}
	}

	for {
		// idle connections are kept open, only the request itself is bounded
		buf := t.bufferPool.Get().([]byte)
		shardID, requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("connection closed by %s", conn.RemoteAddr())
			} else {
				Logger.Errorf("error reading request: %v", err)
			}
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go respond(shardID, requestID, buf, data)
	}
	wg.Wait()
}
