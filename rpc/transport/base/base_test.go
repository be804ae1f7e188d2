package base

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
)

type unixConnector struct{}

func (unixConnector) GetName() string { return "unix" }

func (unixConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (unixConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("unix", config.Transport.Endpoint)
}

// startServer serves handler on a unix socket and returns a connected client.
func startServer(t *testing.T, handler func(shardID uint64, req []byte) []byte, conns int) *clientTransport {
	t.Helper()
	dir, err := os.MkdirTemp("", "dcdt")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")

	server := NewBaseServerTransport(unixConnector{})
	server.RegisterHandler(handler)
	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport:     common.ServerTransportConfig{Endpoint: socket, WorkersPerConn: 4},
		})
	}()

	// wait for the socket to appear
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	client := NewBaseClientTransport(unixConnector{}).(*clientTransport)
	err = client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             1,
			ConnectionsPerEndpoint: conns,
			TCPConf:                common.TCPConf{TCPLingerSec: -1},
		},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
		if err := <-done; err != nil {
			t.Errorf("Listen() error = %v", err)
		}
	})
	return client
}

func TestFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		buf  []byte
	}{
		{"empty", []byte{}, nil},
		{"fits buffer", []byte("payload"), make([]byte, 64)},
		{"exceeds buffer", bytes.Repeat([]byte{7}, 100), make([]byte, 8)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := net.Pipe()
			defer a.Close()
			defer b.Close()
			go func() {
				_ = writeFrame(a, 3, 42, tc.data)
			}()
			shard, id, data, err := readFrame(b, tc.buf)
			if err != nil {
				t.Fatalf("readFrame() error = %v", err)
			}
			if shard != 3 || id != 42 {
				t.Errorf("readFrame() shard, id = %d, %d, want 3, 42", shard, id)
			}
			if !bytes.Equal(data, tc.data) {
				t.Errorf("readFrame() data = %v, want %v", data, tc.data)
			}
		})
	}
}

func TestSendReceive(t *testing.T) {
	client := startServer(t, func(shardID uint64, req []byte) []byte {
		return append([]byte(fmt.Sprintf("%d:", shardID)), req...)
	}, 1)

	resp, err := client.Send(9, []byte("hello"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp) != "9:hello" {
		t.Errorf("Send() = %q, want %q", resp, "9:hello")
	}
}

// TestConcurrentRequests checks that pipelined responses reach the right caller.
func TestConcurrentRequests(t *testing.T) {
	client := startServer(t, func(shardID uint64, req []byte) []byte {
		// answer out of order
		if len(req)%2 == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		return req
	}, 2)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := []byte(fmt.Sprintf("request-%d", i))
			resp, err := client.Send(1, req)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(resp, req) {
				errs <- fmt.Errorf("Send(%q) = %q", req, resp)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConnectWithoutEndpoints(t *testing.T) {
	client := NewBaseClientTransport(unixConnector{})
	if err := client.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Connect() error = nil, want error")
	}
}

func TestListenWithoutHandler(t *testing.T) {
	server := NewBaseServerTransport(unixConnector{})
	if err := server.Listen(common.ServerConfig{}); err == nil {
		t.Errorf("Listen() error = nil, want error")
	}
}
