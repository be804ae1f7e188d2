package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
)

// NewBinarySerializer returns a serializer using a compact flag based format:
//
//	[type:1][flags:1][key][ttl][value][ok][code][err][meta]
//
// Only the fields whose flag is set are written. Strings and byte slices are
// prefixed with a 4 byte big endian length, TTL and Code take 8 bytes.
func NewBinarySerializer() IRPCSerializer {
	return binarySerializerImpl{}
}

type binarySerializerImpl struct{}

const (
	hasKey   byte = 1 << 0
	hasTTL   byte = 1 << 1
	hasValue byte = 1 << 2
	hasOk    byte = 1 << 3
	hasCode  byte = 1 << 4
	hasErr   byte = 1 << 5
	hasMeta  byte = 1 << 6
)

// --------------------------------------------------------------------------
// Interface Methods (docs see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	out := make([]byte, 2, size(msg))
	out[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != "" {
		flags |= hasKey
		out = appendChunk(out, []byte(msg.Key))
	}
	if msg.TTL != 0 {
		flags |= hasTTL
		out = binary.BigEndian.AppendUint64(out, uint64(msg.TTL))
	}
	// an empty but non nil value is kept, it differs from "no value"
	if msg.Value != nil {
		flags |= hasValue
		out = appendChunk(out, msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		out = binary.BigEndian.AppendUint64(out, uint64(msg.Code))
	}
	if msg.Err != "" {
		flags |= hasErr
		out = appendChunk(out, []byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		out = appendChunk(out, msg.Meta)
	}
	out[1] = flags
	return out, nil
}

func (binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}
	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := chunkReader{data: data, pos: 2}

	if flags&hasKey != 0 {
		key, err := r.chunk("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasTTL != 0 {
		ttl, err := r.uint64("ttl")
		if err != nil {
			return err
		}
		msg.TTL = int64(ttl)
	}
	if flags&hasValue != 0 {
		value, err := r.chunk("value")
		if err != nil {
			return err
		}
		msg.Value = value
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasCode != 0 {
		code, err := r.uint64("code")
		if err != nil {
			return err
		}
		msg.Code = store.RetCode(code)
	}
	if flags&hasErr != 0 {
		e, err := r.chunk("err")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}
	if flags&hasMeta != 0 {
		meta, err := r.chunk("meta")
		if err != nil {
			return err
		}
		msg.Meta = meta
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// size returns the exact encoded size of msg.
func size(msg common.Message) int {
	n := 2
	if msg.Key != "" {
		n += 4 + len(msg.Key)
	}
	if msg.TTL != 0 {
		n += 8
	}
	if msg.Value != nil {
		n += 4 + len(msg.Value)
	}
	if msg.Code != store.RetCSuccess {
		n += 8
	}
	if msg.Err != "" {
		n += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		n += 4 + len(msg.Meta)
	}
	return n
}

func appendChunk(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

type chunkReader struct {
	data []byte
	pos  int
}

func (r *chunkReader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// chunk reads a length prefixed field. The result is a copy and never nil.
func (r *chunkReader) chunk(field string) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	if n > len(r.data)-r.pos {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}
