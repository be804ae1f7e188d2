package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTPut     CommandType = iota // Merge bins into a record.
	CommandTRemove                     // Delete a record.
	CommandTOperate                    // Apply a list of operations to a record.
	CommandTBatch                      // Execute a batch of records.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTPut:
		return "Put"
	case CommandTRemove:
		return "Remove"
	case CommandTOperate:
		return "Operate"
	case CommandTBatch:
		return "Batch"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// headerSize is the size of type, ttl and key length
const headerSize = 1 + 8 + 4

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type    CommandType
	Key     string
	TTL     int64
	Payload []byte // encoded bins, operations or batch, depending on Type
}

// NewPutCommand creates a put. Bins with a nil value are kept so they can remove the bin.
func NewPutCommand(key string, bins record.Bins, ttl int64) (Command, error) {
	payload, err := record.EncodeBins(bins)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: CommandTPut, Key: key, TTL: ttl, Payload: payload}, nil
}

// Bins decodes the payload of a put.
func (command *Command) Bins() (record.Bins, error) {
	return record.DecodeBins(command.Payload)
}

// NewOperateCommand creates an operate.
func NewOperateCommand(key string, ops []record.Operation) (Command, error) {
	payload, err := record.EncodeOps(ops)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: CommandTOperate, Key: key, TTL: store.TTLDontUpdate, Payload: payload}, nil
}

// NewBatchCommand creates a batch.
func NewBatchCommand(records []*store.BatchRecord) (Command, error) {
	payload, err := store.EncodeBatch(records)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: CommandTBatch, Payload: payload}, nil
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Key) + len(command.Payload)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the ttl (int64, big endian),
// 4 bytes for key length (big endian),
// N bytes for key data,
// N bytes for the payload (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.TTL))
	binary.BigEndian.PutUint32(result[9:13], uint32(len(command.Key)))
	n := copy(result[headerSize:], command.Key)
	copy(result[headerSize+n:], command.Payload)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.TTL = int64(binary.BigEndian.Uint64(data[1:9]))
	keyLen := int(binary.BigEndian.Uint32(data[9:13]))

	if len(data) < headerSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	command.Key = string(data[headerSize : headerSize+keyLen])

	command.Payload = nil
	if rest := data[headerSize+keyLen:]; len(rest) > 0 {
		command.Payload = make([]byte, len(rest))
		copy(command.Payload, rest)
	}

	return nil
}
