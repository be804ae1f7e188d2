package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
)

// headerSize is shardID (8) + requestID (8) + length (4).
const headerSize = 20

// maxFrameSize rejects frames that would need an absurd allocation.
const maxFrameSize = 256 << 20

// writeFrame writes one frame:
//
//	[shardID:8][requestID:8][length:4][data]
//
// all integers big endian.
func writeFrame(conn net.Conn, shardID, requestID uint64, data []byte) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[0:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame. The payload is read into buf when it fits,
// otherwise a new slice is allocated.
func readFrame(r io.Reader, buf []byte) (shardID, requestID uint64, data []byte, err error) {
	var header [headerSize]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return 0, 0, nil, err
	}
	shardID = binary.BigEndian.Uint64(header[0:8])
	requestID = binary.BigEndian.Uint64(header[8:16])
	n := int(binary.BigEndian.Uint32(header[16:20]))

	if n > maxFrameSize {
		return shardID, requestID, nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", n, maxFrameSize)
	}
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	data = buf[:n]
	if _, err = io.ReadFull(r, data); err != nil {
		return shardID, requestID, nil, err
	}
	return shardID, requestID, data, nil
}

// ConfigureSocket applies buffer sizes and tcp options to conn.
// Options that do not apply to the connection type are ignored.
func ConfigureSocket(conn net.Conn, sock common.SocketConf, tcp common.TCPConf) error {
	type bufferConn interface {
		SetWriteBuffer(bytes int) error
		SetReadBuffer(bytes int) error
	}
	if bc, ok := conn.(bufferConn); ok {
		if sock.WriteBufferSize > 0 {
			if err := bc.SetWriteBuffer(sock.WriteBufferSize); err != nil {
				return err
			}
		}
		if sock.ReadBufferSize > 0 {
			if err := bc.SetReadBuffer(sock.ReadBufferSize); err != nil {
				return err
			}
		}
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetNoDelay(tcp.TCPNoDelay); err != nil {
		return err
	}
	if tcp.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(tcp.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if tcp.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(tcp.TCPLingerSec); err != nil {
			return err
		}
	}
	return nil
}
